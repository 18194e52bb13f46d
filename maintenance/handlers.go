package maintenance

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	auth "github.com/sigma-sevilla/sigma-auth"
)

// Controller exposes the maintenance service over HTTP
type Controller struct {
	Service *Service
	Logger  auth.Logger
}

// NewController returns the HTTP controller over service
func NewController(service *Service, logger auth.Logger) *Controller {
	if service == nil {
		panic("Missing Service in maintenance controller...")
	}
	if logger == nil {
		logger = service.logger
	}
	return &Controller{Service: service, Logger: logger}
}

// RegisterRoutes mounts the CRUD routes behind protected. Every route names its
// operation so guard decides which roles may call it.
func RegisterRoutes(app fiber.Router, controller *Controller, protected fiber.Handler, guard *auth.Guard) {
	agents := app.Group("/agents", protected)
	agents.Get("/", guard.Require(auth.OpAgentsList), controller.ListAgents)
	agents.Post("/", guard.Require(auth.OpAgentsCreate), controller.CreateAgent)
	agents.Put("/:id", guard.Require(auth.OpAgentsUpdate), controller.UpdateAgent)
	agents.Delete("/:id", guard.Require(auth.OpAgentsDelete), controller.DeleteAgent)

	installations := app.Group("/installations", protected)
	installations.Get("/", guard.Require(auth.OpInstallationsList), controller.ListInstallations)
	installations.Post("/", guard.Require(auth.OpInstallationsCreate), controller.CreateInstallation)
	installations.Put("/:id", guard.Require(auth.OpInstallationsUpdate), controller.UpdateInstallation)
	installations.Delete("/:id", guard.Require(auth.OpInstallationsDelete), controller.DeleteInstallation)

	elements := app.Group("/elements", protected)
	elements.Get("/", guard.Require(auth.OpElementsList), controller.ListElements)
	elements.Get("/:id", guard.Require(auth.OpElementsGet), controller.GetElement)
	elements.Post("/", guard.Require(auth.OpElementsCreate), controller.CreateElement)
	elements.Put("/:id", guard.Require(auth.OpElementsUpdate), controller.UpdateElement)
	elements.Delete("/:id", guard.Require(auth.OpElementsDelete), controller.DeleteElement)
	elements.Post("/:id/maintenance", guard.Require(auth.OpElementsRecordMaintenance), controller.RecordMaintenance)
	elements.Post("/:id/faults", guard.Require(auth.OpElementsRecordFault), controller.RecordFault)

	assignments := app.Group("/assignments", protected)
	assignments.Get("/", guard.Require(auth.OpAssignmentsList), controller.ListAssignments)
	assignments.Put("/:sector", guard.Require(auth.OpAssignmentsUpdate), controller.AssignAgents)

	app.Get("/catalog", protected, guard.Require(auth.OpCatalogRead), controller.Catalog)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return auth.NewValidationError(err, "invalid request body")
	}
	return nil
}

func (m *Controller) ListAgents(c *fiber.Ctx) error {
	records, err := m.Service.ListAgents(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (m *Controller) CreateAgent(c *fiber.Ctx) error {
	payload := new(AgentRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	record, err := m.Service.CreateAgent(c.UserContext(), *payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (m *Controller) UpdateAgent(c *fiber.Ctx) error {
	payload := new(AgentRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	record, err := m.Service.UpdateAgent(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (m *Controller) DeleteAgent(c *fiber.Ctx) error {
	if err := m.Service.DeleteAgent(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Agent deleted"})
}

func (m *Controller) ListInstallations(c *fiber.Ctx) error {
	records, err := m.Service.ListInstallations(c.UserContext(), c.Query("sector"))
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (m *Controller) CreateInstallation(c *fiber.Ctx) error {
	payload := new(InstallationRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	record, err := m.Service.CreateInstallation(c.UserContext(), *payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (m *Controller) UpdateInstallation(c *fiber.Ctx) error {
	payload := new(InstallationRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	record, err := m.Service.UpdateInstallation(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (m *Controller) DeleteInstallation(c *fiber.Ctx) error {
	if err := m.Service.DeleteInstallation(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Installation deleted"})
}

func (m *Controller) ListElements(c *fiber.Ctx) error {
	query := new(ElementQuery)
	if err := c.QueryParser(query); err != nil {
		return auth.NewValidationError(err, "invalid query")
	}
	records, err := m.Service.ListElements(c.UserContext(), *query)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (m *Controller) GetElement(c *fiber.Ctx) error {
	record, err := m.Service.GetElement(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (m *Controller) CreateElement(c *fiber.Ctx) error {
	payload := new(ElementRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	record, err := m.Service.CreateElement(c.UserContext(), *payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (m *Controller) UpdateElement(c *fiber.Ctx) error {
	payload := new(ElementRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	record, err := m.Service.UpdateElement(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (m *Controller) DeleteElement(c *fiber.Ctx) error {
	if err := m.Service.DeleteElement(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// RecordMaintenance defaults the record user to the caller's matricula
func (m *Controller) RecordMaintenance(c *fiber.Ctx) error {
	payload := new(MaintenanceRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	if payload.User == "" {
		if claims, ok := auth.GetFiberClaims(c, auth.DefaultContextKey); ok {
			payload.User = claims.Matricula()
		}
	}
	record, err := m.Service.RecordMaintenance(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (m *Controller) RecordFault(c *fiber.Ctx) error {
	payload := new(FaultRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	record, err := m.Service.RecordFault(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (m *Controller) ListAssignments(c *fiber.Ctx) error {
	records, err := m.Service.ListAssignments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (m *Controller) AssignAgents(c *fiber.Ctx) error {
	payload := new(AssignmentRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}
	sector, err := url.PathUnescape(c.Params("sector"))
	if err != nil {
		return ErrUnknownSector
	}
	record, err := m.Service.AssignAgents(c.UserContext(), sector, *payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"sector": record.Sector,
		"agents": record.Agents,
	})
}

// Catalog lists the sectors with their stations and the installation types
func (m *Controller) Catalog(c *fiber.Ctx) error {
	sectors := fiber.Map{}
	for _, name := range Sectors() {
		sectors[name] = Stations(name)
	}
	return c.JSON(fiber.Map{
		"sectors":           sectors,
		"installationTypes": InstallationTypes(),
	})
}

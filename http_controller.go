package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
)

// LoginPayload carries login credentials
type LoginPayload interface {
	GetMatricula() string
	GetPassword() string
}

type AuthControllerRoutes struct {
	Auth     string
	Users    string
	Requests string
}

type AuthController struct {
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       *RouteAuthenticator
	Guard        *Guard
	Registration RegistrationWorkflow
	Users        *UserAdmin
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithControllerRoutes overrides the route prefixes
func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func NewAuthController(auther *RouteAuthenticator, guard *Guard, registration RegistrationWorkflow, users *UserAdmin, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		Auther:       auther,
		Guard:        guard,
		Registration: registration,
		Users:        users,
		Routes: &AuthControllerRoutes{
			Auth:     "/auth",
			Users:    "/users",
			Requests: "/requests",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing Guard in auth controller...")
	}

	if c.Registration == nil {
		panic("Missing RegistrationWorkflow in auth controller...")
	}

	if c.Users == nil {
		panic("Missing UserAdmin in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the session, registration and user routes. Every
// protected route declares its operation so the guard can check it.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	protected := controller.Auther.ProtectedRoute()
	guard := controller.Guard

	auth := app.Group(controller.Routes.Auth)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.Refresh)
	auth.Post("/logout", controller.Logout)
	auth.Get("/me", protected, guard.Require(OpAuthMe), controller.Me)

	users := app.Group(controller.Routes.Users, protected)
	users.Get("/", guard.Require(OpUsersList), controller.ListUsers)
	users.Get("/approve", guard.Require(OpRequestsList), controller.ListPending)
	users.Post("/approve", guard.Require(OpUsersApprove), controller.Approve)
	users.Put("/:id/role", guard.Require(OpUsersUpdateRole), controller.UpdateRole)
	users.Delete("/:id", guard.Require(OpUsersDelete), controller.DeleteUser)

	requests := app.Group(controller.Routes.Requests, protected)
	requests.Get("/", guard.Require(OpRequestsList), controller.ListPending)
	requests.Delete("/:matricula", guard.Require(OpRequestsReject), controller.Reject)
}

// LoginRequest payload
type LoginRequest struct {
	Matricula string `form:"matricula" json:"matricula"`
	Password  string `form:"password" json:"password"`
}

// GetMatricula returns the matricula
func (r LoginRequest) GetMatricula() string {
	return r.Matricula
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will validate the request
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Matricula, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
	)
}

// RegisterRequest is the self registration payload
type RegisterRequest struct {
	Matricula string `form:"matricula" json:"matricula"`
	Name      string `form:"name" json:"name"`
	Surname1  string `form:"surname1" json:"surname1"`
	Surname2  string `form:"surname2" json:"surname2"`
	Password  string `form:"password" json:"password"`
}

// Profile converts the payload into the workflow input
func (r RegisterRequest) Profile() RegistrationProfile {
	return RegistrationProfile{
		Matricula: r.Matricula,
		Name:      r.Name,
		Surname1:  r.Surname1,
		Surname2:  r.Surname2,
		Password:  r.Password,
	}
}

// Validate will validate the request
func (r RegisterRequest) Validate() error {
	return r.Profile().Validate()
}

// ApproveRequest selects the pending request to approve
type ApproveRequest struct {
	Matricula string `form:"matricula" json:"matricula"`
}

// Validate will validate the request
func (r ApproveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Matricula, validation.Required, validation.Length(1, 50)),
	)
}

// UpdateRoleRequest carries the new role of a user
type UpdateRoleRequest struct {
	Role string `form:"role" json:"role"`
}

// Validate will validate the request
func (r UpdateRoleRequest) Validate() error {
	roles := make([]any, 0, len(GetAllRoles()))
	for _, role := range GetAllRoles() {
		roles = append(roles, string(role))
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(roles...)),
	)
}

type validatable interface {
	Validate() error
}

func parsePayload(c *fiber.Ctx, payload validatable) error {
	if err := c.BodyParser(payload); err != nil {
		return NewValidationError(err, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return NewValidationError(err, "invalid request")
	}
	return nil
}

// Register stores a pending registration request
func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := parsePayload(c, payload); err != nil {
		return err
	}

	receipt, err := a.Registration.Submit(c.UserContext(), payload.Profile())
	if err != nil {
		return err
	}

	return c.JSON(receipt)
}

// Login verifies credentials and sets the session cookies
func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return NewValidationError(err, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		// missing fields read as bad credentials to avoid a probing oracle
		return ErrInvalidCredentials
	}

	identity, err := a.Auther.Login(c, payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"user": fiber.Map{
			"matricula": identity.Matricula(),
			"role":      identity.Role(),
		},
	})
}

// Refresh issues a new access cookie from the refresh cookie
func (a *AuthController) Refresh(c *fiber.Ctx) error {
	if _, err := a.Auther.Refresh(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Logout clears the session cookies
func (a *AuthController) Logout(c *fiber.Ctx) error {
	a.Auther.Logout(c)
	return c.JSON(fiber.Map{"status": "logged_out"})
}

// Me returns the claims of the caller
func (a *AuthController) Me(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, DefaultContextKey)
	if !ok {
		return ErrMissingSession
	}

	out := fiber.Map{
		"matricula": claims.Matricula(),
		"role":      claims.Role(),
		"exp":       claims.Expires().Unix(),
	}
	if id := claims.UserID(); id != "" {
		out["id"] = id
	}
	return c.JSON(out)
}

// ListUsers returns every approved user
func (a *AuthController) ListUsers(c *fiber.Ctx) error {
	records, err := a.Users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

// ListPending returns the pending registration requests
func (a *AuthController) ListPending(c *fiber.Ctx) error {
	pending, err := a.Registration.ListPending(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(pending)
}

// Approve turns a pending request into an AGENT user
func (a *AuthController) Approve(c *fiber.Ctx) error {
	payload := new(ApproveRequest)
	if err := parsePayload(c, payload); err != nil {
		return err
	}

	user, err := a.Registration.Approve(c.UserContext(), a.actor(c), payload.Matricula)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// Reject discards a pending request
func (a *AuthController) Reject(c *fiber.Ctx) error {
	if err := a.Registration.Reject(c.UserContext(), a.actor(c), c.Params("matricula")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// UpdateRole changes the role of a user
func (a *AuthController) UpdateRole(c *fiber.Ctx) error {
	payload := new(UpdateRoleRequest)
	if err := parsePayload(c, payload); err != nil {
		return err
	}

	user, err := a.Users.UpdateRole(c.UserContext(), a.actor(c), c.Params("id"), payload.Role)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// DeleteUser removes a user
func (a *AuthController) DeleteUser(c *fiber.Ctx) error {
	if err := a.Users.Delete(c.UserContext(), a.actor(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (a *AuthController) actor(c *fiber.Ctx) ActorRef {
	claims, _ := GetFiberClaims(c, DefaultContextKey)
	return ActorFromClaims(claims)
}

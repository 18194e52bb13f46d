package maintenance

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	auth "github.com/sigma-sevilla/sigma-auth"
	"github.com/sigma-sevilla/sigma-auth/logging"
	"github.com/uptrace/bun"
)

// ElementQuery filters the element list
type ElementQuery struct {
	Sector  string `query:"sector"`
	Station string `query:"station"`
}

// Service runs the maintenance operations over the store
type Service struct {
	db            *bun.DB
	agents        *Store[*Agent]
	installations *Store[*Installation]
	elements      *Store[*Element]
	logger        auth.Logger
	now           func() time.Time
	newID         func() string
}

// ServiceOption customizes the service
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(logger auth.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects the clock stamping records (useful for tests).
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewService returns the service backed by db
func NewService(db *bun.DB, opts ...ServiceOption) *Service {
	s := &Service{
		db:            db,
		agents:        NewStore(db, func() *Agent { return &Agent{} }, ErrAgentNotFound, "name ASC"),
		installations: NewStore(db, func() *Installation { return &Installation{} }, ErrInstallationNotFound, "sector ASC, name ASC"),
		elements:      NewStore(db, func() *Element { return &Element{} }, ErrElementNotFound, "sector ASC, station ASC, name ASC"),
		logger:        logging.New(nil),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.agents.now = s.now
	s.installations.now = s.now
	s.elements.now = s.now

	return s
}

func (s *Service) ListAgents(ctx context.Context) ([]*Agent, error) {
	return s.agents.List(ctx)
}

func (s *Service) CreateAgent(ctx context.Context, req AgentRequest) (*Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid agent")
	}
	return s.agents.Create(ctx, req.Agent())
}

func (s *Service) UpdateAgent(ctx context.Context, id string, req AgentRequest) (*Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid agent")
	}
	return s.agents.Update(ctx, id, req.Agent())
}

// DeleteAgent removes the agent and drops it from every sector assignment
func (s *Service) DeleteAgent(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.agents.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		return unassignTx(ctx, tx, "", []string{uuid.MustParse(strings.TrimSpace(id)).String()})
	})
}

func (s *Service) ListInstallations(ctx context.Context, sector string) ([]*Installation, error) {
	return s.installations.List(ctx, WhereEq("sector", normalizeName(sector)))
}

func (s *Service) CreateInstallation(ctx context.Context, req InstallationRequest) (*Installation, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid installation")
	}
	return s.installations.Create(ctx, req.Installation())
}

func (s *Service) UpdateInstallation(ctx context.Context, id string, req InstallationRequest) (*Installation, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid installation")
	}
	return s.installations.Update(ctx, id, req.Installation())
}

func (s *Service) DeleteInstallation(ctx context.Context, id string) error {
	return s.installations.Delete(ctx, id)
}

// ListElements returns the elements, optionally of one sector or station
func (s *Service) ListElements(ctx context.Context, query ElementQuery) ([]*Element, error) {
	records, err := s.elements.List(ctx,
		WhereEq("sector", normalizeName(query.Sector)),
		WhereEq("station", normalizeName(query.Station)),
	)
	if err != nil {
		return nil, err
	}
	for _, el := range records {
		el.normalize()
	}
	return records, nil
}

func (s *Service) GetElement(ctx context.Context, id string) (*Element, error) {
	el, err := s.elements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	el.normalize()
	return el, nil
}

func (s *Service) CreateElement(ctx context.Context, req ElementRequest) (*Element, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid element")
	}
	return s.elements.Create(ctx, req.Element())
}

// UpdateElement replaces the descriptive fields and keeps both histories
func (s *Service) UpdateElement(ctx context.Context, id string, req ElementRequest) (*Element, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid element")
	}

	el, err := s.elements.UpdateTx(ctx, s.db, id, req.Element(),
		"name", "type", "station", "sector", "params", "is_pending_monthly",
	)
	if err != nil {
		return nil, err
	}
	el.normalize()
	return el, nil
}

func (s *Service) DeleteElement(ctx context.Context, id string) error {
	return s.elements.Delete(ctx, id)
}

// RecordMaintenance appends a maintenance record, marks the element as
// maintained by the user and clears its monthly pending flag.
func (s *Service) RecordMaintenance(ctx context.Context, id string, req MaintenanceRequest) (*Element, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid maintenance record")
	}

	date := s.dateOrNow(req.Date)
	record := MaintenanceRecord{
		ID:     s.newID(),
		Date:   date,
		User:   req.User,
		Shift:  req.Shift,
		Values: req.Values,
	}
	if record.Values == nil {
		record.Values = map[string]any{}
	}

	return s.mutateElement(ctx, id, func(el *Element) []string {
		el.MaintenanceHistory = append(el.MaintenanceHistory, record)
		el.LastMaintenance = &date
		el.CompletedBy = &record.User
		el.IsPendingMonthly = false
		return []string{"maintenance_history", "last_maintenance", "completed_by", "is_pending_monthly"}
	})
}

// RecordFault appends a fault record to the element
func (s *Service) RecordFault(ctx context.Context, id string, req FaultRequest) (*Element, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid fault record")
	}

	record := FaultRecord{
		ID:          s.newID(),
		Date:        s.dateOrNow(req.Date),
		Agents:      req.Agents,
		Description: req.Description,
		Causes:      req.Causes,
		Repair:      req.Repair,
	}

	return s.mutateElement(ctx, id, func(el *Element) []string {
		el.FaultHistory = append(el.FaultHistory, record)
		return []string{"fault_history"}
	})
}

func (s *Service) mutateElement(ctx context.Context, id string, mutate func(el *Element) []string) (*Element, error) {
	var out *Element
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		el, err := s.elements.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		el.normalize()

		columns := mutate(el)
		out, err = s.elements.UpdateTx(ctx, tx, id, el, columns...)
		return err
	})
	if err != nil {
		return nil, err
	}
	out.normalize()
	return out, nil
}

// ListAssignments returns the agents assigned to each sector
func (s *Service) ListAssignments(ctx context.Context) ([]*Assignment, error) {
	records := []*Assignment{}
	if err := s.db.NewSelect().Model(&records).Order("sector ASC").Scan(ctx); err != nil {
		return nil, err
	}
	for _, a := range records {
		if a.Agents == nil {
			a.Agents = []string{}
		}
	}
	return records, nil
}

// AssignAgents replaces the agents of sector. An agent belongs to one sector
// at a time, so the agents are removed from any other sector first.
func (s *Service) AssignAgents(ctx context.Context, sector string, req AssignmentRequest) (*Assignment, error) {
	sector = normalizeName(sector)
	if !IsKnownSector(sector) {
		return nil, ErrUnknownSector
	}
	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err, "invalid assignment")
	}

	agents := make([]string, 0, len(req.Agents))
	for _, id := range req.Agents {
		id = uuid.MustParse(id).String()
		if !slices.Contains(agents, id) {
			agents = append(agents, id)
		}
	}

	now := s.now()
	record := &Assignment{Sector: sector, Agents: agents, UpdatedAt: &now}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(agents) > 0 {
			count, err := tx.NewSelect().
				Model((*Agent)(nil)).
				Where("?TableAlias.id IN (?)", bun.In(agents)).
				Count(ctx)
			if err != nil {
				return err
			}
			if count != len(agents) {
				return ErrUnknownAgent
			}
		}

		if err := unassignTx(ctx, tx, sector, agents); err != nil {
			return err
		}

		_, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (sector) DO UPDATE").
			Set("agents = EXCLUDED.agents").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Sector assignment updated", "sector", sector, "agents", len(agents))
	return record, nil
}

// unassignTx removes agents from every sector other than keep
func unassignTx(ctx context.Context, tx bun.IDB, keep string, agents []string) error {
	if len(agents) == 0 {
		return nil
	}

	records := []*Assignment{}
	if err := tx.NewSelect().Model(&records).Scan(ctx); err != nil {
		return err
	}

	for _, a := range records {
		if a.Sector == keep {
			continue
		}
		remaining := slices.DeleteFunc(slices.Clone(a.Agents), func(id string) bool {
			return slices.Contains(agents, id)
		})
		if len(remaining) == len(a.Agents) {
			continue
		}
		a.Agents = remaining
		if _, err := tx.NewUpdate().Model(a).Column("agents").WherePK().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) dateOrNow(raw string) time.Time {
	if t, ok := parseDate(raw); ok && !t.IsZero() {
		return t.UTC()
	}
	return s.now().UTC()
}

package maintenance

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity is a record addressed by a uuid
type Entity interface {
	GetID() uuid.UUID
	SetID(id uuid.UUID)
	Touch(now time.Time)
}

// Agent is a field agent that can be assigned to a sector
type Agent struct {
	bun.BaseModel `bun:"table:agents,alias:ag"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Role          string     `bun:"role,notnull" json:"role"`
	Phone         string     `bun:"phone" json:"phone"`
	Email         string     `bun:"email" json:"email"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
}

func (a *Agent) GetID() uuid.UUID    { return a.ID }
func (a *Agent) SetID(id uuid.UUID)  { a.ID = id }
func (a *Agent) Touch(now time.Time) { a.UpdatedAt = &now }

// Installation groups equipment of one type within a sector
type Installation struct {
	bun.BaseModel `bun:"table:installations,alias:inst"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Type          string     `bun:"type,notnull" json:"type"`
	Sector        string     `bun:"sector,notnull" json:"sector"`
	Description   string     `bun:"description" json:"description"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
}

func (i *Installation) GetID() uuid.UUID    { return i.ID }
func (i *Installation) SetID(id uuid.UUID)  { i.ID = id }
func (i *Installation) Touch(now time.Time) { i.UpdatedAt = &now }

// MaintenanceRecord is one completed maintenance round on an element
type MaintenanceRecord struct {
	ID     string         `json:"id"`
	Date   time.Time      `json:"date"`
	User   string         `json:"user"`
	Shift  string         `json:"shift,omitempty"`
	Values map[string]any `json:"values"`
}

// FaultRecord is one fault reported on an element
type FaultRecord struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Agents      string    `json:"agents"`
	Description string    `json:"description"`
	Causes      string    `json:"causes"`
	Repair      string    `json:"repair"`
}

// Element is a piece of equipment at a station
type Element struct {
	bun.BaseModel      `bun:"table:elements,alias:el"`
	ID                 uuid.UUID           `bun:"id,pk,type:uuid" json:"id"`
	Name               string              `bun:"name,notnull" json:"name"`
	Type               string              `bun:"type,notnull" json:"type"`
	Station            string              `bun:"station,notnull" json:"station"`
	Sector             string              `bun:"sector,notnull" json:"sector"`
	Params             map[string]any      `bun:"params" json:"params"`
	LastMaintenance    *time.Time          `bun:"last_maintenance,nullzero" json:"lastMaintenance"`
	CompletedBy        *string             `bun:"completed_by" json:"completedBy"`
	IsPendingMonthly   bool                `bun:"is_pending_monthly,notnull" json:"isPendingMonthly"`
	MaintenanceHistory []MaintenanceRecord `bun:"maintenance_history" json:"maintenanceHistory"`
	FaultHistory       []FaultRecord       `bun:"fault_history" json:"faultHistory"`
	CreatedAt          *time.Time          `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt          *time.Time          `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
}

func (e *Element) GetID() uuid.UUID    { return e.ID }
func (e *Element) SetID(id uuid.UUID)  { e.ID = id }
func (e *Element) Touch(now time.Time) { e.UpdatedAt = &now }

// normalize replaces nil collections so they encode as {} and []
func (e *Element) normalize() {
	if e.Params == nil {
		e.Params = map[string]any{}
	}
	if e.MaintenanceHistory == nil {
		e.MaintenanceHistory = []MaintenanceRecord{}
	}
	if e.FaultHistory == nil {
		e.FaultHistory = []FaultRecord{}
	}
}

// Assignment lists the agents covering a sector
type Assignment struct {
	bun.BaseModel `bun:"table:assignments,alias:asg"`
	Sector        string     `bun:"sector,pk" json:"sector"`
	Agents        []string   `bun:"agents" json:"agents"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
}

// Models returns the tables owned by the maintenance package
func Models() []any {
	return []any{
		(*Agent)(nil),
		(*Installation)(nil),
		(*Element)(nil),
		(*Assignment)(nil),
	}
}

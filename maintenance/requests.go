package maintenance

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used for numbers written without a country prefix
const DefaultPhoneRegion = "ES"

const dateLayout = "2006-01-02"

// AgentRequest is the create and update payload of an agent
type AgentRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Validate will validate the request
func (r AgentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Role, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Phone, validation.By(validPhone)),
		validation.Field(&r.Email, validation.Length(0, 100), is.Email),
	)
}

// Agent builds the record. Names are stored upper-cased and phones in E.164.
func (r AgentRequest) Agent() *Agent {
	return &Agent{
		Name:  strings.ToUpper(strings.TrimSpace(r.Name)),
		Role:  strings.TrimSpace(r.Role),
		Phone: FormatPhone(r.Phone),
		Email: strings.ToLower(strings.TrimSpace(r.Email)),
	}
}

// FormatPhone returns phone in E.164. Values that do not parse are returned trimmed.
func FormatPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	num, err := phonenumbers.Parse(phone, DefaultPhoneRegion)
	if err != nil {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func validPhone(value interface{}) error {
	phone, _ := value.(string)
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	num, err := phonenumbers.Parse(phone, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number", errors.CategoryValidation)
	}
	return nil
}

// InstallationRequest is the create and update payload of an installation
type InstallationRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Sector      string `json:"sector"`
	Description string `json:"description"`
}

// Validate will validate the request
func (r InstallationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Type, validation.Required, validation.By(knownType)),
		validation.Field(&r.Sector, validation.Required, validation.By(knownSector)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

// Installation builds the record
func (r InstallationRequest) Installation() *Installation {
	return &Installation{
		Name:        strings.TrimSpace(r.Name),
		Type:        normalizeName(r.Type),
		Sector:      normalizeName(r.Sector),
		Description: strings.TrimSpace(r.Description),
	}
}

// ElementRequest is the create and update payload of an element. Histories
// are only changed by recording maintenance or faults.
type ElementRequest struct {
	Name             string         `json:"name"`
	Type             string         `json:"type"`
	Station          string         `json:"station"`
	Sector           string         `json:"sector"`
	Params           map[string]any `json:"params"`
	IsPendingMonthly bool           `json:"isPendingMonthly"`
}

// Validate will validate the request
func (r ElementRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Type, validation.Required, validation.By(knownType)),
		validation.Field(&r.Sector, validation.Required, validation.By(knownSector)),
		validation.Field(&r.Station, validation.Required, validation.By(func(value interface{}) error {
			station, _ := value.(string)
			if IsKnownSector(r.Sector) && !IsKnownStation(r.Sector, station) {
				return errors.New("must be a station of the sector", errors.CategoryValidation)
			}
			return nil
		})),
	)
}

// Element builds the record
func (r ElementRequest) Element() *Element {
	el := &Element{
		Name:             strings.TrimSpace(r.Name),
		Type:             normalizeName(r.Type),
		Station:          normalizeName(r.Station),
		Sector:           normalizeName(r.Sector),
		Params:           r.Params,
		IsPendingMonthly: r.IsPendingMonthly,
	}
	el.normalize()
	return el
}

// MaintenanceRequest records a completed maintenance round
type MaintenanceRequest struct {
	Date   string         `json:"date"`
	User   string         `json:"user"`
	Shift  string         `json:"shift"`
	Values map[string]any `json:"values"`
}

// Validate will validate the request
func (r MaintenanceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.By(validDate)),
		validation.Field(&r.User, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Shift, validation.Length(0, 20)),
	)
}

// FaultRequest records a fault
type FaultRequest struct {
	Date        string `json:"date"`
	Agents      string `json:"agents"`
	Description string `json:"description"`
	Causes      string `json:"causes"`
	Repair      string `json:"repair"`
}

// Validate will validate the request
func (r FaultRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.By(validDate)),
		validation.Field(&r.Agents, validation.Length(0, 500)),
		validation.Field(&r.Description, validation.Required, validation.Length(1, 2000)),
		validation.Field(&r.Causes, validation.Length(0, 2000)),
		validation.Field(&r.Repair, validation.Length(0, 2000)),
	)
}

// AssignmentRequest replaces the agents of a sector
type AssignmentRequest struct {
	Agents []string `json:"agents"`
}

// Validate will validate the request
func (r AssignmentRequest) Validate() error {
	for _, id := range r.Agents {
		if err := validation.Validate(id, validation.Required, is.UUID); err != nil {
			return validation.Errors{"agents": err}
		}
	}
	return nil
}

func knownSector(value interface{}) error {
	sector, _ := value.(string)
	if sector != "" && !IsKnownSector(sector) {
		return errors.New("must be a known sector", errors.CategoryValidation)
	}
	return nil
}

func knownType(value interface{}) error {
	kind, _ := value.(string)
	if kind != "" && !IsInstallationType(kind) {
		return errors.New("must be a known installation type", errors.CategoryValidation)
	}
	return nil
}

func validDate(value interface{}) error {
	raw, _ := value.(string)
	if _, ok := parseDate(raw); !ok {
		return errors.New("must be a date (YYYY-MM-DD or RFC 3339)", errors.CategoryValidation)
	}
	return nil
}

// parseDate accepts an empty value, a calendar date or an RFC 3339 timestamp.
// An empty value returns the zero time.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is an approved account. Users are only created by approving a
// registration request.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Matricula     string     `bun:"matricula,notnull,unique" json:"matricula"`
	Name          string     `bun:"name,notnull" json:"name"`
	Surname1      string     `bun:"surname1,notnull" json:"surname1"`
	Surname2      string     `bun:"surname2" json:"surname2,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          Role       `bun:"role,notnull" json:"role"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// FullName joins name and surnames skipping empty parts
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return joinName(u.Name, u.Surname1, u.Surname2)
}

// RegistrationRequest is a pending self registration. At most one exists
// per matricula.
type RegistrationRequest struct {
	bun.BaseModel `bun:"table:registration_requests,alias:rr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"-"`
	Matricula     string     `bun:"matricula,notnull,unique" json:"matricula"`
	Name          string     `bun:"name,notnull" json:"name"`
	Surname1      string     `bun:"surname1,notnull" json:"surname1"`
	Surname2      string     `bun:"surname2" json:"surname2,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// PendingRequest is the public projection of a RegistrationRequest
type PendingRequest struct {
	Matricula string     `json:"matricula"`
	Name      string     `json:"name"`
	Surname1  string     `json:"surname1"`
	Surname2  string     `json:"surname2,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Pending returns the projection without the password hash
func (r *RegistrationRequest) Pending() PendingRequest {
	return PendingRequest{
		Matricula: r.Matricula,
		Name:      r.Name,
		Surname1:  r.Surname1,
		Surname2:  r.Surname2,
		CreatedAt: r.CreatedAt,
	}
}

// ToUser builds the account created when the request is approved
func (r *RegistrationRequest) ToUser(id uuid.UUID, role Role) *User {
	return &User{
		ID:           id,
		Matricula:    r.Matricula,
		Name:         r.Name,
		Surname1:     r.Surname1,
		Surname2:     r.Surname2,
		PasswordHash: r.PasswordHash,
		Role:         role,
	}
}

func joinName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Models returns the tables owned by the auth package
func Models() []any {
	return []any{
		(*User)(nil),
		(*RegistrationRequest)(nil),
	}
}

package auth

import (
	"slices"
	"strings"
)

// Role is the user's role
type Role string

const (
	// RoleAdmin manages users, registration requests and every record
	RoleAdmin Role = "ADMIN"
	// RoleSupervisor edits maintenance records for the sectors
	RoleSupervisor Role = "SUPERVISOR"
	// RoleAgent is the default role of an approved registration
	RoleAgent Role = "AGENT"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleAgent:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleSupervisor,
		RoleAgent,
	}
}

// ParseRole safely parses a string into a Role. Input is trimmed and
// upper-cased so "admin" and " ADMIN " resolve to RoleAdmin.
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}

// RoleSet is the set of roles allowed to run an operation. The zero value
// allows nobody.
type RoleSet struct {
	roles         []Role
	authenticated bool
}

// AnyAuthenticated allows every caller that resolved a valid session
func AnyAuthenticated() RoleSet {
	return RoleSet{authenticated: true}
}

// RolesOf allows only the given roles
func RolesOf(roles ...Role) RoleSet {
	return RoleSet{roles: append([]Role(nil), roles...)}
}

// Allows reports whether role is a member of the set
func (s RoleSet) Allows(role Role) bool {
	if s.authenticated {
		return role.IsValid()
	}
	return slices.Contains(s.roles, role)
}

// Roles returns the explicit members, nil for AnyAuthenticated
func (s RoleSet) Roles() []Role {
	if s.authenticated {
		return nil
	}
	return append([]Role(nil), s.roles...)
}

func (s RoleSet) String() string {
	if s.authenticated {
		return "any authenticated"
	}
	if len(s.roles) == 0 {
		return "none"
	}
	names := make([]string, len(s.roles))
	for i, r := range s.roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

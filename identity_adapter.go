package auth

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Matricula returns the user's matricula.
func (u UserIdentity) Matricula() string {
	if u.user == nil {
		return ""
	}
	return u.user.Matricula
}

// Role returns the user's role.
func (u UserIdentity) Role() Role {
	if u.user == nil {
		return ""
	}
	return u.user.Role
}

// SuperAdminIdentity is the configured bootstrap administrator. It has no
// backing user record and therefore no ID.
type SuperAdminIdentity struct {
	matricula string
}

// NewSuperAdminIdentity returns the bootstrap administrator identity
func NewSuperAdminIdentity(matricula string) Identity {
	return SuperAdminIdentity{matricula: matricula}
}

func (s SuperAdminIdentity) ID() string        { return "" }
func (s SuperAdminIdentity) Matricula() string { return s.matricula }
func (s SuperAdminIdentity) Role() Role        { return RoleAdmin }

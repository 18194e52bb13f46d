package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind separates access tokens from refresh tokens
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// AuthClaims represents the identity claims resolved from a verified token
type AuthClaims interface {
	Subject() string
	UserID() string
	Matricula() string
	Role() Role
	Kind() TokenKind
	HasRole(roles ...Role) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UserMatricula string    `json:"matricula"`
	UserRole      Role      `json:"role"`
	UID           string    `json:"id,omitempty"`
	TokenKind     TokenKind `json:"kind"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the internal user id, empty for the bootstrap admin
func (c *JWTClaims) UserID() string {
	return c.UID
}

// Matricula returns the personnel identifier
func (c *JWTClaims) Matricula() string {
	if c.UserMatricula != "" {
		return c.UserMatricula
	}
	return c.Subject()
}

// Role returns the global role
func (c *JWTClaims) Role() Role {
	return c.UserRole
}

// Kind returns the token kind
func (c *JWTClaims) Kind() TokenKind {
	return c.TokenKind
}

// HasRole checks if the claims role is any of roles
func (c *JWTClaims) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if c.UserRole == r {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ClaimsIdentity exposes verified claims as an Identity, used to mint a new
// access token from a refresh token.
type ClaimsIdentity struct {
	claims AuthClaims
}

// NewIdentityFromClaims wraps claims
func NewIdentityFromClaims(claims AuthClaims) Identity {
	if claims == nil {
		return nil
	}
	return ClaimsIdentity{claims: claims}
}

func (c ClaimsIdentity) ID() string        { return c.claims.UserID() }
func (c ClaimsIdentity) Matricula() string { return c.claims.Matricula() }
func (c ClaimsIdentity) Role() Role        { return c.claims.Role() }

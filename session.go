package auth

import "strings"

// TokenVerifier verifies a raw token for a given kind. TokenServiceImpl
// satisfies it.
type TokenVerifier interface {
	VerifyKind(tokenString string, kind TokenKind) (AuthClaims, error)
}

// SessionResolver resolves the caller identity from the access token cookie
type SessionResolver struct {
	verifier TokenVerifier
}

// NewSessionResolver returns a resolver backed by verifier
func NewSessionResolver(verifier TokenVerifier) *SessionResolver {
	return &SessionResolver{verifier: verifier}
}

// ResolveCaller returns the claims carried by cookieValue. An absent cookie
// yields ErrMissingSession, anything that does not verify ErrInvalidToken.
func (s *SessionResolver) ResolveCaller(cookieValue string) (AuthClaims, error) {
	raw := strings.TrimSpace(cookieValue)
	if raw == "" {
		return nil, ErrMissingSession
	}

	claims, err := s.verifier.VerifyKind(raw, TokenKindAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Validate lets the resolver plug into middleware that expects a validator
func (s *SessionResolver) Validate(tokenString string) (AuthClaims, error) {
	return s.ResolveCaller(tokenString)
}

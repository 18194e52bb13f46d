package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL is the lifetime of an access token
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL is the lifetime of a refresh token
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenService issues and verifies session tokens
type TokenService interface {
	IssueAccess(identity Identity) (string, time.Time, error)
	IssueRefresh(identity Identity) (string, time.Time, error)
	Verify(tokenString string) (AuthClaims, error)
	VerifyKind(tokenString string, kind TokenKind) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	logger     Logger
}

// TokenServiceOption customizes the token service
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock injects the clock used for iat, exp and validation
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger sets the logger used to record verification failures
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithTokenTTL overrides access and refresh lifetimes. Zero keeps the default.
func WithTokenTTL(access, refresh time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if access > 0 {
			ts.accessTTL = access
		}
		if refresh > 0 {
			ts.refreshTTL = refresh
		}
	}
}

// WithTokenIssuer sets the iss claim, verified on every token
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	ts := &TokenServiceImpl{
		signingKey: append([]byte(nil), signingKey...),
		accessTTL:  DefaultAccessTokenTTL,
		refreshTTL: DefaultRefreshTokenTTL,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// NewTokenServiceFromConfig builds the service from the process configuration
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	base := []TokenServiceOption{
		WithTokenIssuer(cfg.GetIssuer()),
		WithTokenTTL(cfg.GetAccessTokenTTL(), cfg.GetRefreshTokenTTL()),
	}
	return NewTokenService([]byte(cfg.GetSigningKey()), append(base, opts...)...)
}

// IssueAccess creates a short lived access token
func (ts *TokenServiceImpl) IssueAccess(identity Identity) (string, time.Time, error) {
	return ts.issue(identity, TokenKindAccess, ts.accessTTL)
}

// IssueRefresh creates a long lived refresh token
func (ts *TokenServiceImpl) IssueRefresh(identity Identity) (string, time.Time, error) {
	return ts.issue(identity, TokenKindRefresh, ts.refreshTTL)
}

// AccessTTL returns the configured access token lifetime
func (ts *TokenServiceImpl) AccessTTL() time.Duration {
	return ts.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime
func (ts *TokenServiceImpl) RefreshTTL() time.Duration {
	return ts.refreshTTL
}

func (ts *TokenServiceImpl) issue(identity Identity, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	if identity == nil || identity.Matricula() == "" {
		return "", time.Time{}, errors.New("identity with matricula is required", errors.CategoryBadInput)
	}

	if !identity.Role().IsValid() {
		return "", time.Time{}, ErrInvalidRole
	}

	now := ts.now()
	expiresAt := now.Add(ttl)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.Matricula(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserMatricula: identity.Matricula(),
		UserRole:      identity.Role(),
		UID:           identity.ID(),
		TokenKind:     kind,
	}

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, claims.Expires(), nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string. Every failure is reported as
// ErrInvalidToken; the cause is only logged.
func (ts *TokenServiceImpl) Verify(tokenString string) (AuthClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
		// reject non canonical base64url so no alternate encoding verifies
		jwt.WithStrictDecoding(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			ts.logger.Debug("TokenService verify rejected expired token")
		} else {
			ts.logger.Debug("TokenService verify rejected token", "error", err)
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService verify could not decode claims")
		return nil, ErrInvalidToken
	}

	if claims.Matricula() == "" || !claims.Role().IsValid() {
		ts.logger.Debug("TokenService verify rejected token with incomplete claims")
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyKind verifies the token and requires the given kind
func (ts *TokenServiceImpl) VerifyKind(tokenString string, kind TokenKind) (AuthClaims, error) {
	claims, err := ts.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Kind() != kind {
		ts.logger.Debug("TokenService verify rejected token kind", "want", kind, "got", claims.Kind())
		return nil, ErrInvalidToken
	}

	return claims, nil
}

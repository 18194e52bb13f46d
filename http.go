package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/sigma-sevilla/sigma-auth/middleware/jwtware"
)

const (
	DefaultAccessCookieName  = "access_token"
	DefaultRefreshCookieName = "refresh_token"
)

// IdentityReloader resolves the current identity behind refresh token claims
type IdentityReloader interface {
	ReloadIdentity(ctx context.Context, claims AuthClaims) (Identity, error)
}

// RouteAuthenticator binds the token service and the credential verifier to
// cookie based sessions.
type RouteAuthenticator struct {
	tokens       TokenService
	credentials  CredentialAuthenticator
	reloader     IdentityReloader
	cfg          Config
	activitySink ActivitySink
	now          func() time.Time
	Logger       Logger
	ErrorHandler fiber.ErrorHandler
}

// RouteAuthenticatorOption customizes the route authenticator
type RouteAuthenticatorOption func(*RouteAuthenticator)

// WithRouteLogger sets the logger
func WithRouteLogger(logger Logger) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		a.Logger = normalizeLogger(logger)
	}
}

// WithRouteActivitySink sets the sink receiving login, refresh and logout events
func WithRouteActivitySink(sink ActivitySink) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		a.activitySink = normalizeActivitySink(sink)
	}
}

// WithRouteClock injects the clock used for cookie expiry
func WithRouteClock(clock func() time.Time) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithIdentityReloader sets how refresh resolves the current identity. Without
// one the refresh token claims are reused as they are.
func WithIdentityReloader(reloader IdentityReloader) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		a.reloader = reloader
	}
}

// NewHTTPAuthenticator returns the cookie session handler set
func NewHTTPAuthenticator(tokens TokenService, credentials CredentialAuthenticator, cfg Config, opts ...RouteAuthenticatorOption) (*RouteAuthenticator, error) {
	if tokens == nil {
		return nil, errors.New("token service is required", errors.CategoryInternal)
	}
	if credentials == nil {
		return nil, errors.New("credential verifier is required", errors.CategoryInternal)
	}

	a := &RouteAuthenticator{
		tokens:       tokens,
		credentials:  credentials,
		cfg:          cfg,
		activitySink: noopActivitySink{},
		now:          time.Now,
		Logger:       defLogger{},
	}

	if r, ok := credentials.(IdentityReloader); ok {
		a.reloader = r
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.ErrorHandler == nil {
		a.ErrorHandler = NewErrorHandler(a.Logger)
	}

	return a, nil
}

// Login verifies credentials and sets both session cookies
func (a *RouteAuthenticator) Login(c *fiber.Ctx, payload LoginPayload) (Identity, error) {
	identity, err := a.credentials.VerifyCredentials(c.UserContext(), payload.GetMatricula(), payload.GetPassword())
	if err != nil {
		a.Logger.Info("Login failed", "matricula", payload.GetMatricula())
		emitActivity(c.UserContext(), a.activitySink, a.Logger, a.now, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Actor:     ActorRef{Matricula: payload.GetMatricula(), Type: "unknown"},
			Matricula: payload.GetMatricula(),
		})
		return nil, err
	}

	access, accessExp, err := a.tokens.IssueAccess(identity)
	if err != nil {
		a.Logger.Error("Login issue access token error", "error", err)
		return nil, err
	}

	refresh, refreshExp, err := a.tokens.IssueRefresh(identity)
	if err != nil {
		a.Logger.Error("Login issue refresh token error", "error", err)
		return nil, err
	}

	a.setCookieToken(c, a.accessCookieName(), access, accessExp)
	a.setCookieToken(c, a.refreshCookieName(), refresh, refreshExp)

	emitActivity(c.UserContext(), a.activitySink, a.Logger, a.now, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     actorFromIdentity(identity),
		Matricula: identity.Matricula(),
		UserID:    identity.ID(),
		Metadata: map[string]any{
			"role": identity.Role(),
		},
	})

	return identity, nil
}

// Refresh exchanges the refresh cookie for a new access cookie. The role is
// read again so changes made by an administrator apply on the next refresh.
func (a *RouteAuthenticator) Refresh(c *fiber.Ctx) (Identity, error) {
	raw := c.Cookies(a.refreshCookieName())
	if raw == "" {
		return nil, ErrMissingSession
	}

	claims, err := a.tokens.VerifyKind(raw, TokenKindRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	identity := NewIdentityFromClaims(claims)
	if a.reloader != nil {
		identity, err = a.reloader.ReloadIdentity(c.UserContext(), claims)
		if err != nil {
			return nil, err
		}
	}

	access, accessExp, err := a.tokens.IssueAccess(identity)
	if err != nil {
		a.Logger.Error("Refresh issue access token error", "error", err)
		return nil, err
	}

	a.setCookieToken(c, a.accessCookieName(), access, accessExp)

	emitActivity(c.UserContext(), a.activitySink, a.Logger, a.now, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		Actor:     actorFromIdentity(identity),
		Matricula: identity.Matricula(),
		UserID:    identity.ID(),
	})

	return identity, nil
}

// Logout clears both session cookies
func (a *RouteAuthenticator) Logout(c *fiber.Ctx) {
	a.cookieDel(c, a.accessCookieName())
	a.cookieDel(c, a.refreshCookieName())

	if claims, ok := GetFiberClaims(c, DefaultContextKey); ok {
		emitActivity(c.UserContext(), a.activitySink, a.Logger, a.now, ActivityEvent{
			EventType: ActivityEventLogout,
			Actor:     ActorFromClaims(claims),
			Matricula: claims.Matricula(),
		})
	}
}

// ProtectedRoute resolves the caller from the access cookie and stores the
// claims in fiber locals and the user context.
func (a *RouteAuthenticator) ProtectedRoute() fiber.Handler {
	resolver := NewSessionResolver(a.tokens)
	return jwtware.New(jwtware.Config[AuthClaims]{
		TokenValidator: resolver,
		ContextKey:     DefaultContextKey,
		TokenLookup:    fmt.Sprintf("cookie:%s,header:Authorization", a.accessCookieName()),
		AuthScheme:     "Bearer",
		ContextEnricher: func(ctx context.Context, claims AuthClaims) context.Context {
			return WithClaimsContext(ctx, claims)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				err = ErrMissingSession
			}
			return a.ErrorHandler(c, err)
		},
	})
}

func (a *RouteAuthenticator) accessCookieName() string {
	if a.cfg != nil && a.cfg.GetAccessCookieName() != "" {
		return a.cfg.GetAccessCookieName()
	}
	return DefaultAccessCookieName
}

func (a *RouteAuthenticator) refreshCookieName() string {
	if a.cfg != nil && a.cfg.GetRefreshCookieName() != "" {
		return a.cfg.GetRefreshCookieName()
	}
	return DefaultRefreshCookieName
}

func (a *RouteAuthenticator) cookieDomain() string {
	if a.cfg == nil {
		return ""
	}
	return a.cfg.GetCookieDomain()
}

// cookies are cross site, which browsers only accept as Secure
func (a *RouteAuthenticator) setCookieToken(c *fiber.Ctx, name, val string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Domain:   a.cookieDomain(),
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (a *RouteAuthenticator) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   a.cookieDomain(),
		Expires:  a.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:        identity.ID(),
		Matricula: identity.Matricula(),
		Type:      "user",
	}
}

// ErrorBody is the JSON envelope of every error response
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Category string `json:"category"`
	Code     int    `json:"code"`
	TextCode string `json:"text_code,omitempty"`
	Message  string `json:"message"`
}

// NewErrorHandler maps any error to a status code and JSON body. Errors that
// are not rich errors are reported as internal without leaking their text.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		richErr := ToRichError(err)

		if richErr.Code >= fiber.StatusInternalServerError {
			logger.Error(
				"Request failed",
				"path", c.Path(),
				"error", err,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
		} else {
			logger.Debug(
				"Request rejected",
				"path", c.Path(),
				"category", richErr.Category,
				"text_code", richErr.TextCode,
			)
		}

		return c.Status(richErr.Code).JSON(ErrorBody{
			Error: ErrorDetail{
				Category: fmt.Sprint(richErr.Category),
				Code:     richErr.Code,
				TextCode: richErr.TextCode,
				Message:  richErr.Message,
			},
		})
	}
}

// ToRichError normalizes err into a go-errors value with an HTTP code
func ToRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.Code == 0 {
			richErr = errors.Wrap(richErr, richErr.Category, richErr.Message).
				WithTextCode(richErr.TextCode).
				WithCode(codeForCategory(richErr.Category))
		}
		return richErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return errors.Wrap(err, categoryForStatus(fiberErr.Code), fiberErr.Message).
			WithCode(fiberErr.Code)
	}

	return errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
		WithCode(errors.CodeInternal)
}

func codeForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return errors.CodeUnauthorized
	case errors.CategoryAuthz:
		return errors.CodeForbidden
	case errors.CategoryNotFound:
		return errors.CodeNotFound
	case errors.CategoryValidation, errors.CategoryBadInput, errors.CategoryConflict:
		return errors.CodeBadRequest
	default:
		return errors.CodeInternal
	}
}

func categoryForStatus(status int) errors.Category {
	switch {
	case status == fiber.StatusUnauthorized:
		return errors.CategoryAuth
	case status == fiber.StatusForbidden:
		return errors.CategoryAuthz
	case status == fiber.StatusNotFound:
		return errors.CategoryNotFound
	case status >= 400 && status < 500:
		return errors.CategoryBadInput
	default:
		return errors.CategoryInternal
	}
}

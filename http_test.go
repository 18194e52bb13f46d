package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-sevilla/sigma-auth"
	"github.com/sigma-sevilla/sigma-auth/config"
)

type authFixture struct {
	app    *fiber.App
	repo   auth.RepositoryManager
	tokens *auth.TokenServiceImpl
	events *eventRecorder
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	cfg := config.Defaults()
	cfg.Auth.SigningKey = testSigningKey
	cfg.Auth.SuperAdminMatricula = "admin"
	cfg.Auth.SuperAdminPassword = "bootstrap"

	repo := auth.NewRepositoryManager(newTestDB(t))
	tokens := newTokens(t)
	events := &eventRecorder{}

	verifier := auth.NewCredentialVerifier(repo.Users(), cfg, auth.WithCredentialLogger(quietLogger{}))
	auther, err := auth.NewHTTPAuthenticator(tokens, verifier, cfg,
		auth.WithRouteLogger(quietLogger{}),
		auth.WithRouteActivitySink(events),
	)
	require.NoError(t, err)

	controller := auth.NewAuthController(
		auther,
		auth.NewGuard(auth.DefaultAccessPolicy(), auth.WithGuardLogger(quietLogger{})),
		auth.NewRegistrationWorkflow(repo, auth.WithRegistrationLogger(quietLogger{})),
		auth.NewUserAdmin(repo.Users()),
		auth.WithControllerLogger(quietLogger{}),
	)

	app := fiber.New(fiber.Config{ErrorHandler: auther.ErrorHandler})
	auth.RegisterAuthRoutes(app, controller)

	return &authFixture{app: app, repo: repo, tokens: tokens, events: events}
}

func (f *authFixture) send(t *testing.T, method, target, body string, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if buf.Len() > 0 {
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	}
	return resp, out
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func errorTextCode(body map[string]any) string {
	detail, _ := body["error"].(map[string]any)
	code, _ := detail["text_code"].(string)
	return code
}

func TestLoginSetsSessionCookies(t *testing.T) {
	f := newAuthFixture(t)

	resp, body := f.send(t, fiber.MethodPost, "/auth/login", `{"matricula":"admin","password":"bootstrap"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	user, _ := body["user"].(map[string]any)
	assert.Equal(t, "admin", user["matricula"])
	assert.Equal(t, "ADMIN", user["role"])

	for _, name := range []string{auth.DefaultAccessCookieName, auth.DefaultRefreshCookieName} {
		cookie := cookieNamed(resp, name)
		require.NotNil(t, cookie, name)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
	}

	access := cookieNamed(resp, auth.DefaultAccessCookieName)
	resp, body = f.send(t, fiber.MethodGet, "/auth/me", "", access)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body["matricula"])
	assert.Equal(t, "ADMIN", body["role"])
	assert.NotContains(t, body, "id")

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, f.events.types())
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name     string
		body     string
		status   int
		textCode string
	}{
		{"wrong password", `{"matricula":"admin","password":"nope"}`, fiber.StatusUnauthorized, auth.TextCodeInvalidCreds},
		{"unknown matricula", `{"matricula":"99999","password":"bootstrap"}`, fiber.StatusUnauthorized, auth.TextCodeInvalidCreds},
		{"missing password", `{"matricula":"admin"}`, fiber.StatusUnauthorized, auth.TextCodeInvalidCreds},
		{"malformed body", `{"matricula":`, fiber.StatusBadRequest, auth.TextCodeInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.send(t, fiber.MethodPost, "/auth/login", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.textCode, errorTextCode(body))
			assert.Nil(t, cookieNamed(resp, auth.DefaultAccessCookieName))
		})
	}

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventLoginFailure,
		auth.ActivityEventLoginFailure,
	}, f.events.types())
}

func TestProtectedRouteResolution(t *testing.T) {
	f := newAuthFixture(t)

	resp, body := f.send(t, fiber.MethodGet, "/auth/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeSessionNotFound, errorTextCode(body))

	resp, body = f.send(t, fiber.MethodGet, "/auth/me", "",
		&http.Cookie{Name: auth.DefaultAccessCookieName, Value: "garbage"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeTokenInvalid, errorTextCode(body))

	refresh, _, err := f.tokens.IssueRefresh(testIdentity{matricula: "admin", role: auth.RoleAdmin})
	require.NoError(t, err)
	resp, body = f.send(t, fiber.MethodGet, "/auth/me", "",
		&http.Cookie{Name: auth.DefaultAccessCookieName, Value: refresh})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "refresh token does not open a session")
	assert.Equal(t, auth.TextCodeTokenInvalid, errorTextCode(body))

	access, _, err := f.tokens.IssueAccess(testIdentity{matricula: "admin", role: auth.RoleAdmin})
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	headerResp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, headerResp.StatusCode)
}

func TestRefreshReloadsRole(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := seedUser(t, f.repo, "12345", "s3cret", auth.RoleAgent)

	resp, _ := f.send(t, fiber.MethodPost, "/auth/login", `{"matricula":"12345","password":"s3cret"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	refresh := cookieNamed(resp, auth.DefaultRefreshCookieName)
	require.NotNil(t, refresh)

	_, err := f.repo.Users().UpdateRole(ctx, user.ID, auth.RoleSupervisor)
	require.NoError(t, err)

	resp, _ = f.send(t, fiber.MethodPost, "/auth/refresh", "", refresh)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	access := cookieNamed(resp, auth.DefaultAccessCookieName)
	require.NotNil(t, access)
	assert.Nil(t, cookieNamed(resp, auth.DefaultRefreshCookieName), "refresh keeps the refresh cookie")

	_, body := f.send(t, fiber.MethodGet, "/auth/me", "", access)
	assert.Equal(t, "SUPERVISOR", body["role"])
	assert.Equal(t, user.ID.String(), body["id"])

	resp, body = f.send(t, fiber.MethodPost, "/auth/refresh", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeSessionNotFound, errorTextCode(body))

	resp, body = f.send(t, fiber.MethodPost, "/auth/refresh", "",
		&http.Cookie{Name: auth.DefaultRefreshCookieName, Value: access.Value})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "access token is not a refresh token")
	assert.Equal(t, auth.TextCodeTokenInvalid, errorTextCode(body))
}

func TestLogoutClearsCookies(t *testing.T) {
	f := newAuthFixture(t)

	resp, body := f.send(t, fiber.MethodPost, "/auth/logout", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "logged_out", body["status"])

	for _, name := range []string{auth.DefaultAccessCookieName, auth.DefaultRefreshCookieName} {
		cookie := cookieNamed(resp, name)
		require.NotNil(t, cookie, name)
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	}
}

func TestNewHTTPAuthenticatorRequiresDependencies(t *testing.T) {
	_, err := auth.NewHTTPAuthenticator(nil, auth.NewCredentialVerifier(nil, nil), nil)
	assert.Error(t, err)

	_, err = auth.NewHTTPAuthenticator(newTokens(t), nil, nil)
	assert.Error(t, err)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(quietLogger{})})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return stderrors.New("pq: connection refused at 10.0.0.3")
	})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return errors.New("already there", errors.CategoryConflict)
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return auth.ErrForbidden
	})

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/plain", fiber.StatusInternalServerError, "An unexpected server error occurred"},
		{"/conflict", fiber.StatusBadRequest, ""},
		{"/missing", fiber.StatusNotFound, "Not Found"},
		{"/forbidden", fiber.StatusForbidden, "not authorized"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body auth.ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.status, body.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error.Message)
			}
			assert.NotContains(t, body.Error.Message, "10.0.0.3")
		})
	}
}

func TestToRichError(t *testing.T) {
	wrapped := errors.Wrap(auth.ErrUserNotFound, errors.CategoryNotFound, "lookup failed")
	rich := auth.ToRichError(wrapped)
	assert.Equal(t, fiber.StatusNotFound, rich.Code)

	rich = auth.ToRichError(auth.NewValidationError(stderrors.New("name: cannot be blank"), "invalid request"))
	assert.Equal(t, fiber.StatusBadRequest, rich.Code)
	assert.Equal(t, auth.TextCodeInvalidPayload, rich.TextCode)
}

package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/sigma-sevilla/sigma-auth"
	"github.com/sigma-sevilla/sigma-auth/store"
)

const testSigningKey = "unit-test-signing-key"

// testIdentity implements auth.Identity
type testIdentity struct {
	id        string
	matricula string
	role      auth.Role
}

func (i testIdentity) ID() string        { return i.id }
func (i testIdentity) Matricula() string { return i.matricula }
func (i testIdentity) Role() auth.Role   { return i.role }

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, kv ...any) {
	m.Called(msg, kv)
}

func (m *MockLogger) Info(msg string, kv ...any) {
	m.Called(msg, kv)
}

func (m *MockLogger) Warn(msg string, kv ...any) {
	m.Called(msg, kv)
}

func (m *MockLogger) Error(msg string, kv ...any) {
	m.Called(msg, kv)
}

// quietLogger drops every message
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

// eventRecorder collects activity events
type eventRecorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *eventRecorder) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.OpenMemory(context.Background(), fmt.Sprintf("auth_%s", name), auth.Models()...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTokens(t *testing.T, opts ...auth.TokenServiceOption) *auth.TokenServiceImpl {
	t.Helper()
	tokens, err := auth.NewTokenService([]byte(testSigningKey), append([]auth.TokenServiceOption{
		auth.WithTokenLogger(quietLogger{}),
	}, opts...)...)
	require.NoError(t, err)
	return tokens
}

func claimsFor(t *testing.T, role auth.Role) auth.AuthClaims {
	t.Helper()
	tokens := newTokens(t)
	raw, _, err := tokens.IssueAccess(testIdentity{matricula: "M-" + string(role), role: role})
	require.NoError(t, err)
	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	return claims
}

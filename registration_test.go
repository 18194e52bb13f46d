package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-sevilla/sigma-auth"
)

func newWorkflow(t *testing.T, opts ...auth.RegistrationOption) (auth.RegistrationWorkflow, auth.RepositoryManager, *eventRecorder) {
	t.Helper()
	repo := auth.NewRepositoryManager(newTestDB(t))
	require.NoError(t, repo.Validate())

	events := &eventRecorder{}
	base := []auth.RegistrationOption{
		auth.WithRegistrationActivitySink(events),
		auth.WithRegistrationLogger(quietLogger{}),
		auth.WithRegistrationClock(func() time.Time {
			return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		}),
	}
	return auth.NewRegistrationWorkflow(repo, append(base, opts...)...), repo, events
}

func profile(matricula string) auth.RegistrationProfile {
	return auth.RegistrationProfile{
		Matricula: matricula,
		Name:      "Ana",
		Surname1:  "García",
		Surname2:  "López",
		Password:  "s3cret",
	}
}

var adminActor = auth.ActorRef{Matricula: "admin", Type: "user"}

func TestRegistration_Submit(t *testing.T) {
	ctx := context.Background()
	workflow, repo, events := newWorkflow(t)

	receipt, err := workflow.Submit(ctx, profile(" 12345 "))
	require.NoError(t, err)
	assert.Equal(t, "ok", receipt.Status)
	assert.Equal(t, auth.SubmissionConfirmation, receipt.Message)
	assert.Equal(t, "12345", receipt.Matricula)
	assert.Equal(t, auth.RegistrationPending, receipt.State)

	stored, err := repo.Requests().GetByMatricula(ctx, "12345")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.NoError(t, auth.ComparePasswordAndHash("s3cret", stored.PasswordHash))

	state, err := workflow.State(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, auth.RegistrationPending, state)

	_, err = workflow.Submit(ctx, profile("12345"))
	assert.ErrorIs(t, err, auth.ErrRequestAlreadySubmitted)

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventRegistrationSubmitted}, events.types())
}

func TestRegistration_SubmitValidation(t *testing.T) {
	workflow, _, _ := newWorkflow(t)

	tests := []struct {
		name   string
		mutate func(*auth.RegistrationProfile)
	}{
		{"missing matricula", func(p *auth.RegistrationProfile) { p.Matricula = "  " }},
		{"missing name", func(p *auth.RegistrationProfile) { p.Name = "" }},
		{"missing first surname", func(p *auth.RegistrationProfile) { p.Surname1 = "" }},
		{"missing password", func(p *auth.RegistrationProfile) { p.Password = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profile("12345")
			tt.mutate(&p)

			_, err := workflow.Submit(context.Background(), p)
			require.Error(t, err)
			assert.Equal(t, auth.TextCodeInvalidPayload, auth.ToRichError(err).TextCode)
			assert.Equal(t, 400, auth.ToRichError(err).Code)
		})
	}
}

func TestRegistration_ApproveCreatesOneAgent(t *testing.T) {
	ctx := context.Background()
	workflow, repo, events := newWorkflow(t)

	_, err := workflow.Submit(ctx, profile("12345"))
	require.NoError(t, err)

	user, err := workflow.Approve(ctx, adminActor, "12345")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAgent, user.Role)
	assert.Equal(t, "Ana García López", user.FullName())

	expectedID, err := hashid.NewUUID("12345")
	require.NoError(t, err)
	assert.Equal(t, expectedID, user.ID)

	_, err = workflow.Approve(ctx, adminActor, "12345")
	assert.ErrorIs(t, err, auth.ErrRequestNotFound)

	users, err := repo.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	pending, err := workflow.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	state, err := workflow.State(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, auth.RegistrationApproved, state)

	_, err = workflow.Submit(ctx, profile("12345"))
	assert.ErrorIs(t, err, auth.ErrUserAlreadyRegistered)

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventRegistrationSubmitted,
		auth.ActivityEventRegistrationApproved,
	}, events.types())
}

func TestRegistration_ApproveUnknown(t *testing.T) {
	workflow, _, _ := newWorkflow(t)

	_, err := workflow.Approve(context.Background(), adminActor, "99999")
	assert.ErrorIs(t, err, auth.ErrRequestNotFound)

	_, err = workflow.Approve(context.Background(), adminActor, " ")
	assert.ErrorIs(t, err, auth.ErrRequestNotFound)
}

func TestRegistration_Reject(t *testing.T) {
	ctx := context.Background()
	workflow, _, events := newWorkflow(t)

	_, err := workflow.Submit(ctx, profile("12345"))
	require.NoError(t, err)

	require.NoError(t, workflow.Reject(ctx, adminActor, "12345"))
	assert.ErrorIs(t, workflow.Reject(ctx, adminActor, "12345"), auth.ErrRequestNotFound)

	state, err := workflow.State(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, auth.RegistrationNone, state)

	// a rejected matricula may apply again
	_, err = workflow.Submit(ctx, profile("12345"))
	assert.NoError(t, err)

	types := events.types()
	require.Len(t, types, 3)
	assert.Equal(t, auth.ActivityEventRegistrationRejected, types[1])
}

func TestRegistration_ListPendingHidesHashes(t *testing.T) {
	ctx := context.Background()
	workflow, _, _ := newWorkflow(t)

	for _, m := range []string{"30000", "10000", "20000"} {
		_, err := workflow.Submit(ctx, profile(m))
		require.NoError(t, err)
	}

	pending, err := workflow.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	matriculas := make([]string, 0, len(pending))
	for _, p := range pending {
		matriculas = append(matriculas, p.Matricula)
		assert.Equal(t, "Ana", p.Name)
	}
	assert.ElementsMatch(t, []string{"10000", "20000", "30000"}, matriculas)
}

func TestRegistration_SubmitRejectsReservedMatricula(t *testing.T) {
	ctx := context.Background()
	workflow, repo, events := newWorkflow(t, auth.WithReservedMatriculas(" admin ", ""))

	_, err := workflow.Submit(ctx, profile("admin"))
	assert.ErrorIs(t, err, auth.ErrUserAlreadyRegistered)
	assert.Equal(t, 400, auth.ToRichError(err).Code)

	pending, err := repo.Requests().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, events.types())

	_, err = workflow.Submit(ctx, profile("12345"))
	assert.NoError(t, err)
}

func TestNewRegistrationWorkflow_PanicsWithoutDatabase(t *testing.T) {
	assert.Panics(t, func() {
		auth.NewRegistrationWorkflow(auth.NewRepositoryManager(nil))
	})
}

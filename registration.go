package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegistrationState is the position of a matricula in the approval flow
type RegistrationState string

const (
	RegistrationNone     RegistrationState = "NONE"
	RegistrationPending  RegistrationState = "PENDING"
	RegistrationApproved RegistrationState = "APPROVED"
	// RegistrationRejected is only reported by Reject. At rest a rejected
	// matricula reads as RegistrationNone.
	RegistrationRejected RegistrationState = "REJECTED"
)

// SubmissionConfirmation is the message returned to the applicant
const SubmissionConfirmation = "Solicitud enviada"

// RegistrationProfile is the data an applicant submits
type RegistrationProfile struct {
	Matricula string `json:"matricula"`
	Name      string `json:"name"`
	Surname1  string `json:"surname1"`
	Surname2  string `json:"surname2"`
	Password  string `json:"password"`
}

// Validate checks the submitted profile
func (p RegistrationProfile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Matricula, validation.Required, validation.Length(1, 50)),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Surname1, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Surname2, validation.Length(0, 100)),
		validation.Field(&p.Password, validation.Required, validation.Length(4, 100)),
	)
}

func (p RegistrationProfile) normalized() RegistrationProfile {
	p.Matricula = strings.TrimSpace(p.Matricula)
	p.Name = strings.TrimSpace(p.Name)
	p.Surname1 = strings.TrimSpace(p.Surname1)
	p.Surname2 = strings.TrimSpace(p.Surname2)
	return p
}

// SubmissionReceipt confirms a stored registration request
type SubmissionReceipt struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Matricula string            `json:"-"`
	State     RegistrationState `json:"-"`
}

// RegistrationWorkflow moves matriculas from NONE to PENDING and on to
// APPROVED or REJECTED.
type RegistrationWorkflow interface {
	Submit(ctx context.Context, profile RegistrationProfile) (*SubmissionReceipt, error)
	Approve(ctx context.Context, actor ActorRef, matricula string) (*User, error)
	Reject(ctx context.Context, actor ActorRef, matricula string) error
	ListPending(ctx context.Context) ([]PendingRequest, error)
	State(ctx context.Context, matricula string) (RegistrationState, error)
}

// RegistrationOption customizes the workflow
type RegistrationOption func(*registrationWorkflow)

// WithRegistrationClock injects a custom clock (useful for tests).
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(w *registrationWorkflow) {
		if clock != nil {
			w.now = clock
		}
	}
}

// WithRegistrationActivitySink sets the sink receiving workflow events
func WithRegistrationActivitySink(sink ActivitySink) RegistrationOption {
	return func(w *registrationWorkflow) {
		w.activitySink = normalizeActivitySink(sink)
	}
}

// WithReservedMatriculas blocks registrations for matriculas that are not
// backed by a user record, such as the bootstrap super-admin.
func WithReservedMatriculas(matriculas ...string) RegistrationOption {
	return func(w *registrationWorkflow) {
		for _, m := range matriculas {
			if m = strings.TrimSpace(m); m != "" {
				w.reserved[m] = struct{}{}
			}
		}
	}
}

// WithRegistrationLogger overrides the logger
func WithRegistrationLogger(logger Logger) RegistrationOption {
	return func(w *registrationWorkflow) {
		w.logger = normalizeLogger(logger)
	}
}

type registrationWorkflow struct {
	repo         RepositoryManager
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
	hash         func(password string) (string, error)
	userID       func(matricula string) (uuid.UUID, error)
	reserved     map[string]struct{}
}

// NewRegistrationWorkflow returns the workflow backed by repo. It panics when
// repo is not fully wired.
func NewRegistrationWorkflow(repo RepositoryManager, opts ...RegistrationOption) RegistrationWorkflow {
	repo.MustValidate()

	w := &registrationWorkflow{
		repo:         repo,
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		hash:         HashPassword,
		userID: func(matricula string) (uuid.UUID, error) {
			return hashid.NewUUID(matricula)
		},
		reserved: map[string]struct{}{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// Submit stores a pending request. A matricula already held by a user or by
// another request is a conflict.
func (w *registrationWorkflow) Submit(ctx context.Context, profile RegistrationProfile) (*SubmissionReceipt, error) {
	profile = profile.normalized()
	if err := profile.Validate(); err != nil {
		return nil, NewValidationError(err, "invalid registration request")
	}

	if _, ok := w.reserved[profile.Matricula]; ok {
		w.logger.Info("Registration submit for reserved matricula", "matricula", profile.Matricula)
		return nil, ErrUserAlreadyRegistered
	}

	// hash outside the transaction, bcrypt is slow on purpose
	passwordHash, err := w.hash(profile.Password)
	if err != nil {
		return nil, err
	}

	record := &RegistrationRequest{
		Matricula:    profile.Matricula,
		Name:         profile.Name,
		Surname1:     profile.Surname1,
		Surname2:     profile.Surname2,
		PasswordHash: passwordHash,
	}

	err = w.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := w.repo.LockMatriculaTx(ctx, tx, profile.Matricula); err != nil {
			return err
		}

		registered, err := w.repo.Users().ExistsTx(ctx, tx, profile.Matricula)
		if err != nil {
			return err
		}
		if registered {
			return ErrUserAlreadyRegistered
		}

		pending, err := w.repo.Requests().ExistsTx(ctx, tx, profile.Matricula)
		if err != nil {
			return err
		}
		if pending {
			return ErrRequestAlreadySubmitted
		}

		if _, err := w.repo.Requests().CreateTx(ctx, tx, record); err != nil {
			if IsUniqueViolation(err) {
				return ErrRequestAlreadySubmitted
			}
			return err
		}
		return nil
	})
	if err != nil {
		w.logger.Debug("Registration submit failed", "matricula", profile.Matricula, "error", err)
		return nil, err
	}

	emitActivity(ctx, w.activitySink, w.logger, w.now, ActivityEvent{
		EventType: ActivityEventRegistrationSubmitted,
		Actor:     ActorRef{Matricula: profile.Matricula, Type: "applicant"},
		Matricula: profile.Matricula,
	})

	return &SubmissionReceipt{
		Status:    "ok",
		Message:   SubmissionConfirmation,
		Matricula: profile.Matricula,
		State:     RegistrationPending,
	}, nil
}

// Approve consumes the pending request and creates the AGENT user in one
// transaction. Approving a matricula without a pending request, including a
// repeated approval, returns ErrRequestNotFound.
func (w *registrationWorkflow) Approve(ctx context.Context, actor ActorRef, matricula string) (*User, error) {
	matricula = strings.TrimSpace(matricula)
	if matricula == "" {
		return nil, ErrRequestNotFound
	}

	id, err := w.userID(matricula)
	if err != nil {
		return nil, err
	}

	var created *User
	err = w.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := w.repo.LockMatriculaTx(ctx, tx, matricula); err != nil {
			return err
		}

		request, err := w.repo.Requests().GetByMatriculaTx(ctx, tx, matricula)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}

		if err := w.repo.Requests().DeleteByMatriculaTx(ctx, tx, matricula); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}

		user, err := w.repo.Users().CreateTx(ctx, tx, request.ToUser(id, RoleAgent))
		if err != nil {
			if IsUniqueViolation(err) {
				return ErrRequestNotFound
			}
			return err
		}

		created = user
		return nil
	})
	if err != nil {
		w.logger.Debug("Registration approve failed", "matricula", matricula, "error", err)
		return nil, err
	}

	emitActivity(ctx, w.activitySink, w.logger, w.now, ActivityEvent{
		EventType: ActivityEventRegistrationApproved,
		Actor:     actor,
		Matricula: matricula,
		UserID:    created.ID.String(),
		Metadata: map[string]any{
			"role": created.Role,
		},
	})

	return created, nil
}

// Reject discards the pending request for matricula
func (w *registrationWorkflow) Reject(ctx context.Context, actor ActorRef, matricula string) error {
	matricula = strings.TrimSpace(matricula)
	if matricula == "" {
		return ErrRequestNotFound
	}

	err := w.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := w.repo.LockMatriculaTx(ctx, tx, matricula); err != nil {
			return err
		}

		if err := w.repo.Requests().DeleteByMatriculaTx(ctx, tx, matricula); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	emitActivity(ctx, w.activitySink, w.logger, w.now, ActivityEvent{
		EventType: ActivityEventRegistrationRejected,
		Actor:     actor,
		Matricula: matricula,
		Metadata: map[string]any{
			"state": RegistrationRejected,
		},
	})

	return nil
}

// ListPending returns every pending request without password hashes
func (w *registrationWorkflow) ListPending(ctx context.Context) ([]PendingRequest, error) {
	records, err := w.repo.Requests().List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]PendingRequest, 0, len(records))
	for _, r := range records {
		out = append(out, r.Pending())
	}
	return out, nil
}

// State reports where matricula stands
func (w *registrationWorkflow) State(ctx context.Context, matricula string) (RegistrationState, error) {
	matricula = strings.TrimSpace(matricula)
	state := RegistrationNone

	err := w.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		registered, err := w.repo.Users().ExistsTx(ctx, tx, matricula)
		if err != nil {
			return err
		}
		if registered {
			state = RegistrationApproved
			return nil
		}

		pending, err := w.repo.Requests().ExistsTx(ctx, tx, matricula)
		if err != nil {
			return err
		}
		if pending {
			state = RegistrationPending
		}
		return nil
	})
	if err != nil {
		return RegistrationNone, err
	}

	return state, nil
}

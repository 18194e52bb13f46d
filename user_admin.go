package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// UserAdmin manages approved accounts
type UserAdmin struct {
	users        Users
	activitySink ActivitySink
	logger       Logger
	now          func() time.Time
}

// UserAdminOption customizes the user administration service
type UserAdminOption func(*UserAdmin)

// WithUserAdminActivitySink sets the sink receiving role and delete events
func WithUserAdminActivitySink(sink ActivitySink) UserAdminOption {
	return func(a *UserAdmin) {
		a.activitySink = normalizeActivitySink(sink)
	}
}

// WithUserAdminLogger sets the logger
func WithUserAdminLogger(logger Logger) UserAdminOption {
	return func(a *UserAdmin) {
		a.logger = normalizeLogger(logger)
	}
}

// NewUserAdmin returns the service over users
func NewUserAdmin(users Users, opts ...UserAdminOption) *UserAdmin {
	a := &UserAdmin{
		users:        users,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// List returns every stored user. The bootstrap super-admin has no record and
// is not listed.
func (a *UserAdmin) List(ctx context.Context) ([]*User, error) {
	return a.users.List(ctx)
}

// UpdateRole sets the role of user id
func (a *UserAdmin) UpdateRole(ctx context.Context, actor ActorRef, id string, role string) (*User, error) {
	parsed, ok := ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}

	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrUserNotFound
	}

	user, err := a.users.UpdateRole(ctx, uid, parsed)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	emitActivity(ctx, a.activitySink, a.logger, a.now, ActivityEvent{
		EventType: ActivityEventUserRoleChanged,
		Actor:     actor,
		Matricula: user.Matricula,
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"role": parsed,
		},
	})

	return user, nil
}

// Delete removes user id
func (a *UserAdmin) Delete(ctx context.Context, actor ActorRef, id string) error {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return ErrUserNotFound
	}

	if err := a.users.Delete(ctx, uid); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}

	emitActivity(ctx, a.activitySink, a.logger, a.now, ActivityEvent{
		EventType: ActivityEventUserDeleted,
		Actor:     actor,
		UserID:    uid.String(),
	})

	return nil
}

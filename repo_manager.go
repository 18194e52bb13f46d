package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Requests() RegistrationRequests
	// LockMatriculaTx serializes transactions touching the same matricula
	// until tx ends.
	LockMatriculaTx(ctx context.Context, tx bun.IDB, matricula string) error
}

type mngr struct {
	db       *bun.DB
	users    Users
	requests RegistrationRequests
}

// NewRepositoryManager wires the auth repositories over db
func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db, opts...),
		requests: NewRegistrationRequestsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager database should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.requests == nil {
		return errors.New("repository requests should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Requests() RegistrationRequests {
	return m.requests
}

// LockMatriculaTx takes a transaction scoped advisory lock on postgres. The
// sqlite store runs on a single connection, so its transactions are already
// serialized and no lock is needed.
func (m mngr) LockMatriculaTx(ctx context.Context, tx bun.IDB, matricula string) error {
	if m.db.Dialect().Name() != dialect.PG {
		return nil
	}
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", "registration:"+matricula)
	return err
}

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegistrationRequests is the store of pending registrations
type RegistrationRequests interface {
	GetByMatricula(ctx context.Context, matricula string) (*RegistrationRequest, error)
	GetByMatriculaTx(ctx context.Context, tx bun.IDB, matricula string) (*RegistrationRequest, error)
	ExistsTx(ctx context.Context, tx bun.IDB, matricula string) (bool, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *RegistrationRequest) (*RegistrationRequest, error)
	DeleteByMatriculaTx(ctx context.Context, tx bun.IDB, matricula string) error
	List(ctx context.Context) ([]*RegistrationRequest, error)
}

type registrationRequests struct {
	repository.Repository[*RegistrationRequest]
	db  *bun.DB
	now func() time.Time
}

var _ RegistrationRequests = (*registrationRequests)(nil)

// NewRegistrationRequestsRepository returns the bun backed pending request store
func NewRegistrationRequestsRepository(db *bun.DB) RegistrationRequests {
	handlers := repository.ModelHandlers[*RegistrationRequest]{
		NewRecord: func() *RegistrationRequest {
			return &RegistrationRequest{}
		},
		GetID: func(record *RegistrationRequest) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *RegistrationRequest, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "matricula"
		},
	}

	return &registrationRequests{
		Repository: repository.NewRepository(db, handlers),
		db:         db,
		now:        time.Now,
	}
}

func (r *registrationRequests) GetByMatricula(ctx context.Context, matricula string) (*RegistrationRequest, error) {
	return r.GetByMatriculaTx(ctx, r.db, matricula)
}

func (r *registrationRequests) GetByMatriculaTx(ctx context.Context, tx bun.IDB, matricula string) (*RegistrationRequest, error) {
	return r.Repository.GetByIdentifierTx(ctx, tx, strings.TrimSpace(matricula))
}

func (r *registrationRequests) ExistsTx(ctx context.Context, tx bun.IDB, matricula string) (bool, error) {
	return tx.NewSelect().
		Model((*RegistrationRequest)(nil)).
		Where("?TableAlias.matricula = ?", strings.TrimSpace(matricula)).
		Exists(ctx)
}

func (r *registrationRequests) CreateTx(ctx context.Context, tx bun.IDB, record *RegistrationRequest) (*RegistrationRequest, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Matricula = strings.TrimSpace(record.Matricula)
	if record.CreatedAt == nil {
		now := r.now()
		record.CreatedAt = &now
	}
	return r.Repository.CreateTx(ctx, tx, record)
}

// DeleteByMatriculaTx removes the pending request. Exactly one row must go,
// otherwise the request was already consumed and a not found error is returned.
func (r *registrationRequests) DeleteByMatriculaTx(ctx context.Context, tx bun.IDB, matricula string) error {
	res, err := tx.NewDelete().
		Model((*RegistrationRequest)(nil)).
		Where("matricula = ?", strings.TrimSpace(matricula)).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n != 1 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"matricula": matricula,
				"deleted":   n,
			})
	}
	return nil
}

func (r *registrationRequests) List(ctx context.Context) ([]*RegistrationRequest, error) {
	records := []*RegistrationRequest{}
	err := r.db.NewSelect().
		Model(&records).
		Order("created_at ASC", "matricula ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

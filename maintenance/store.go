package maintenance

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Filter narrows a list query
type Filter func(q *bun.SelectQuery) *bun.SelectQuery

// WhereEq filters rows where column equals value. Empty values are ignored.
func WhereEq(column, value string) Filter {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if strings.TrimSpace(value) == "" {
			return q
		}
		return q.Where("?TableAlias.? = ?", bun.Ident(column), strings.TrimSpace(value))
	}
}

// Store is the bun backed CRUD store of one entity
type Store[T Entity] struct {
	repository.Repository[T]
	db       *bun.DB
	notFound *errors.Error
	order    string
	now      func() time.Time
}

// NewStore returns a store for T. notFound is returned for missing ids and
// order is the list ORDER BY clause.
func NewStore[T Entity](db *bun.DB, newRecord func() T, notFound *errors.Error, order string) *Store[T] {
	repo := repository.NewRepository[T](db, repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID: func(record T) uuid.UUID {
			return record.GetID()
		},
		SetID: func(record T, id uuid.UUID) {
			record.SetID(id)
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &Store[T]{
		Repository: repo,
		db:         db,
		notFound:   notFound,
		order:      order,
		now:        time.Now,
	}
}

// DB returns the underlying connection
func (s *Store[T]) DB() *bun.DB {
	return s.db
}

// List returns every record matching filters
func (s *Store[T]) List(ctx context.Context, filters ...Filter) ([]T, error) {
	records := []T{}
	q := s.db.NewSelect().Model(&records)
	for _, filter := range filters {
		if filter != nil {
			q = filter(q)
		}
	}
	if s.order != "" {
		q = q.Order(s.order)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the record with id
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	return s.GetTx(ctx, s.db, id)
}

// GetTx returns the record with id inside tx
func (s *Store[T]) GetTx(ctx context.Context, tx bun.IDB, id string) (T, error) {
	var zero T
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return zero, s.notFound
	}

	record, err := s.Repository.GetByIdentifierTx(ctx, tx, strings.TrimSpace(id))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return zero, s.notFound
		}
		return zero, err
	}
	return record, nil
}

// Create stores record with a fresh id
func (s *Store[T]) Create(ctx context.Context, record T) (T, error) {
	record.SetID(uuid.New())
	return s.Repository.CreateTx(ctx, s.db, record)
}

// Update replaces every column of the record with id
func (s *Store[T]) Update(ctx context.Context, id string, record T) (T, error) {
	return s.UpdateTx(ctx, s.db, id, record)
}

// UpdateTx replaces every column of the record with id inside tx
func (s *Store[T]) UpdateTx(ctx context.Context, tx bun.IDB, id string, record T, columns ...string) (T, error) {
	var zero T
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return zero, s.notFound
	}
	record.SetID(uid)
	record.Touch(s.now())

	q := tx.NewUpdate().
		Model(record).
		WherePK()
	if len(columns) > 0 {
		q = q.Column(append(columns, "updated_at")...)
	} else {
		q = q.ExcludeColumn("id", "created_at")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return zero, err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return zero, s.notFound
	}

	return s.GetTx(ctx, tx, uid.String())
}

// Delete removes the record with id
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	return s.DeleteTx(ctx, s.db, id)
}

// DeleteTx removes the record with id inside tx
func (s *Store[T]) DeleteTx(ctx context.Context, tx bun.IDB, id string) error {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return s.notFound
	}

	var zero T
	res, err := tx.NewDelete().
		Model(zero).
		Where("?TableAlias.id = ?", uid).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return s.notFound
	}
	return nil
}

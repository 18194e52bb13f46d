// Package store opens the bun database for the configured driver and creates
// the schema for the registered models.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config describes the database to open
type Config interface {
	GetDatabaseDriver() string
	GetDatabaseDSN() string
}

// Open connects to the database described by cfg and checks it is reachable
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	return OpenDSN(ctx, cfg.GetDatabaseDriver(), cfg.GetDatabaseDSN())
}

// OpenDSN connects using an explicit driver and dsn
func OpenDSN(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	var db *bun.DB

	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "open sqlite database")
		}
		// sqlite serializes writers, a single connection avoids SQLITE_BUSY
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "open postgres database")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, errors.New(fmt.Sprintf("unsupported database driver %q", driver), errors.CategoryValidation)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "ping database").
			WithMetadata(map[string]any{"driver": driver})
	}

	return db, nil
}

// CreateSchema creates a table per model when it does not exist yet
func CreateSchema(ctx context.Context, db *bun.DB, models ...any) error {
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "create table").
				WithMetadata(map[string]any{"model": fmt.Sprintf("%T", model)})
		}
	}
	return nil
}

// OpenMemory opens a private in-memory sqlite database, used by tests and the
// --db-dsn=:memory: shortcut. name keeps concurrent databases apart.
func OpenMemory(ctx context.Context, name string, models ...any) (*bun.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := OpenDSN(ctx, DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	if err := CreateSchema(ctx, db, models...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

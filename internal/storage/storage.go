// Package storage opens the local client database and wires the repositories
// over it. SQLite plays the role browser storage plays for a web storefront:
// a durable, single-user, local cache.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"storefront/internal/migrations"
	"storefront/internal/repositories/addresses"
	"storefront/internal/repositories/metadata"
)

// Repositories bundles the local repositories sharing one database.
type Repositories struct {
	Metadata  metadata.Repository
	Addresses addresses.Repository
	DB        *sql.DB
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Init opens (creating if needed) the database at dsn, migrates it, and
// returns the repositories.
func Init(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Metadata:  metadata.NewSQLiteRepository(db),
		Addresses: addresses.NewSQLiteRepository(db),
		DB:        db,
	}, nil
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

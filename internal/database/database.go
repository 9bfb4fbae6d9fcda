// Package database bootstraps the Signal Store Gateway's Postgres
// connection pool and runs its goose migrations. It registers both the
// pgx stdlib driver (default, used for its context-aware pooling) and
// lib/pq (a fallback for environments pinned to the pure database/sql
// driver), selected by Config.Driver.
package database

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Config points at the signal store's Postgres instance.
type Config struct {
	DSN    string
	Driver string // "pgx" (default) or "postgres" (lib/pq)
}

// Open connects to the signal store and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "pgx"
	}
	db, err := sqlx.ConnectContext(ctx, driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signal store: %w", err)
	}
	return db, nil
}

// Migrate applies every pending goose migration under migrationsDir.
func Migrate(db *sqlx.DB, migrationsDir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db.DB, migrationsDir); err != nil {
		return fmt.Errorf("failed to run signal store migrations: %w", err)
	}
	return nil
}

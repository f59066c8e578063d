// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package postgres is the PostgreSQL implementation of store.Store, built on
// sqlx and lib/pq with goose-managed migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/store"
)

// Repository implements store.Store against PostgreSQL.
type Repository struct {
	db  *sqlx.DB
	now store.Clock
}

var _ store.Store = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for rate-limit windows and
// message timestamps.
func WithClock(clock store.Clock) Option {
	return func(r *Repository) {
		r.now = clock
	}
}

// New connects to cfg.URL and, when cfg.AutoMigrate is set, applies pending
// migrations.
func New(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Repository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(2, maxOpen/2))
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)

	r := &Repository{db: db, now: store.SystemClock}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.AutoMigrate {
		if err := r.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return r, nil
}

// NewWithDB wraps an existing connection. Migrations are not run.
func NewWithDB(db *sqlx.DB, opts ...Option) *Repository {
	r := &Repository{db: db, now: store.SystemClock}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend identifies this store in metrics and health output.
func (r *Repository) Backend() string {
	return store.BackendPostgres
}

// DB returns the underlying sqlx handle.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// logPQError adds PostgreSQL diagnostics to the log when err carries them.
func logPQError(operation string, err error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		logging.Error().
			Str("operation", operation).
			Str("pg_code", string(pqErr.Code)).
			Str("pg_constraint", pqErr.Constraint).
			Msg(pqErr.Message)
		return
	}
	logging.Error().Str("operation", operation).Err(err).Msg("PostgreSQL operation failed")
}

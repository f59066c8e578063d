// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/tomtom215/broadcastmap/internal/logging"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationStatus is one row of goose status output.
type MigrationStatus struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// MigrationFS returns the embedded migration files rooted at the
// migrations directory.
func MigrationFS() (fs.FS, error) {
	return fs.Sub(embeddedMigrations, "migrations")
}

func (r *Repository) provider() (*goose.Provider, error) {
	fsys, err := MigrationFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectPostgres, r.db.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, nil
}

// Migrate applies all pending migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	p, err := r.provider()
	if err != nil {
		return err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, res := range results {
		logging.Info().
			Int64("version", res.Source.Version).
			Str("file", res.Source.Path).
			Dur("duration", res.Duration).
			Msg("Applied migration")
	}
	return nil
}

// MigrationStatus reports every known migration and whether it is applied.
func (r *Repository) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	p, err := r.provider()
	if err != nil {
		return nil, err
	}

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// HasPendingMigrations reports whether any migration is not yet applied.
func (r *Repository) HasPendingMigrations(ctx context.Context) (bool, error) {
	p, err := r.provider()
	if err != nil {
		return false, err
	}
	return p.HasPending(ctx)
}

// SchemaVersion returns the highest applied migration version.
func (r *Repository) SchemaVersion(ctx context.Context) (int64, error) {
	p, err := r.provider()
	if err != nil {
		return 0, err
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}

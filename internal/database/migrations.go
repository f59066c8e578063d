// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/broadcastmap/internal/logging"
)

// Migration represents a versioned database migration.
type Migration struct {
	Version     int       // Unique version number (monotonically increasing)
	Name        string    // Human-readable migration name
	Description string    // Description of what this migration does
	SQL         string    // Single SQL statement to execute
	AppliedAt   time.Time // When the migration was applied (populated on query)
}

// schemaMigrationsTable creates the migration tracking table.
// Timestamps are plain TIMESTAMP (UTC by convention) so the ICU extension is
// never required.
const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL
);
`

// migrations is append-only. Never modify or remove an entry once released.
//
// anonymous_devices carries no secondary indexes: DuckDB rejects ON CONFLICT
// updates that touch indexed columns, and the counter columns change on
// every post. device_id is not a foreign key for the same reason.
var migrations = []Migration{
	{
		Version:     1,
		Name:        "create_anonymous_devices",
		Description: "Per-device rate limit counters keyed by hashed device identifier",
		SQL: `CREATE TABLE IF NOT EXISTS anonymous_devices (
	id TEXT PRIMARY KEY,
	device_id_hash TEXT NOT NULL UNIQUE,
	device_public_key TEXT,
	ip_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	last_post_at TIMESTAMP,
	post_count_24h INTEGER NOT NULL DEFAULT 0,
	post_count_reset_at TIMESTAMP NOT NULL
)`,
	},
	{
		Version:     2,
		Name:        "create_broadcast_messages",
		Description: "Public geotagged messages",
		SQL: `CREATE TABLE IF NOT EXISTS broadcast_messages (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	latitude DOUBLE NOT NULL CHECK (latitude >= -90 AND latitude <= 90),
	longitude DOUBLE NOT NULL CHECK (longitude >= -180 AND longitude <= 180),
	geo_precision TEXT NOT NULL DEFAULT 'approx' CHECK (geo_precision IN ('exact', 'approx', 'region')),
	status TEXT NOT NULL DEFAULT 'published' CHECK (status IN ('published', 'pending')),
	device_id TEXT NOT NULL,
	profile_id TEXT,
	created_at TIMESTAMP NOT NULL
)`,
	},
	{
		Version:     3,
		Name:        "index_broadcast_messages_created_at",
		Description: "Newest-first ordering for viewport reads",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_broadcast_messages_created_at ON broadcast_messages (created_at)`,
	},
	{
		Version:     4,
		Name:        "index_broadcast_messages_lat_lng",
		Description: "Bounding-box predicate on latitude and longitude",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_broadcast_messages_lat_lng ON broadcast_messages (latitude, longitude)`,
	},
}

// Migrations returns a copy of the versioned migration list.
func Migrations() []Migration {
	out := make([]Migration, len(migrations))
	copy(out, migrations)
	return out
}

// createMigrationsTable creates the schema_migrations table if it doesn't exist
func (db *DB) createMigrationsTable(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, schemaMigrationsTable)
	return err
}

// getAppliedMigrations returns a map of version -> Migration for all applied migrations
func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	history, err := db.migrationHistory(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[int]Migration, len(history))
	for _, m := range history {
		applied[m.Version] = m
	}
	return applied, nil
}

// runVersionedMigrations executes only migrations that haven't been applied yet.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	newMigrations := 0
	for _, m := range migrations {
		if _, exists := applied[m.Version]; exists {
			continue
		}

		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}

		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
			m.Version, m.Name, m.Description, db.now())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}

		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("applied", newMigrations).Msg("Applied database migrations")
	}

	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var version int64
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// MigrationHistory returns all applied migrations in order.
func (db *DB) MigrationHistory(ctx context.Context) ([]Migration, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.migrationHistory(ctx)
}

func (db *DB) migrationHistory(ctx context.Context) ([]Migration, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT version, name, COALESCE(description, ''), applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer closeWithLog(rows, "migration rows")

	var history []Migration
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/broadcastmap/internal/store"
)

const (
	schemaTimeout = time.Minute
	queryTimeout  = 30 * time.Second
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), schemaTimeout)
}

// ensureContext bounds ctx by queryTimeout unless the caller already set a
// deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

// Checkpoint flushes the DuckDB WAL into the database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Stats is a point-in-time row count.
type Stats struct {
	Messages          int64
	PublishedMessages int64
	Devices           int64
	// ActiveDevices have posted inside their current window.
	ActiveDevices int64
}

const statsSQL = `
SELECT
	(SELECT COUNT(*) FROM ` + store.TableMessages + `),
	(SELECT COUNT(*) FROM ` + store.TableMessages + ` WHERE status = 'published'),
	(SELECT COUNT(*) FROM ` + store.TableDevices + `),
	(SELECT COUNT(*) FROM ` + store.TableDevices + ` WHERE post_count_24h > 0 AND post_count_reset_at > ?)`

// Stats counts messages and devices in one round trip.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var s Stats
	err := db.conn.QueryRowContext(ctx, statsSQL, db.now()).
		Scan(&s.Messages, &s.PublishedMessages, &s.Devices, &s.ActiveDevices)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return s, nil
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/store"
)

// upsertDeviceSQL creates the device on first sight or advances its counter.
// A window that has ended restarts at 1 with a fresh 24h horizon. SET
// expressions read the pre-update row.
const upsertDeviceSQL = `
INSERT INTO anonymous_devices (id, device_id_hash, ip_hash, created_at, last_post_at, post_count_24h, post_count_reset_at)
VALUES (?, ?, ?, ?, ?, 1, ?)
ON CONFLICT (device_id_hash) DO UPDATE SET
	ip_hash = EXCLUDED.ip_hash,
	last_post_at = EXCLUDED.last_post_at,
	post_count_24h = CASE
		WHEN post_count_reset_at <= EXCLUDED.last_post_at THEN 1
		ELSE post_count_24h + 1
	END,
	post_count_reset_at = CASE
		WHEN post_count_reset_at <= EXCLUDED.last_post_at THEN EXCLUDED.post_count_reset_at
		ELSE post_count_reset_at
	END
RETURNING id, post_count_24h`

// CheckAndIncrement atomically counts a post attempt for the device and
// reports whether it is within limit.
func (db *DB) CheckAndIncrement(ctx context.Context, deviceIDHash, ipHash string, limit int) (*models.RateLimitResult, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var (
		deviceID string
		count    int
	)
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		now := db.now()
		return db.conn.QueryRowContext(ctx, upsertDeviceSQL,
			uuid.NewString(), deviceIDHash, ipHash, now, now, now.Add(store.RateLimitWindow),
		).Scan(&deviceID, &count)
	})
	metrics.RecordDBQuery(store.BackendDuckDB, "check_and_increment", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrRateLimitCheckFailed, err)
	}

	return store.Decide(deviceID, count, limit), nil
}

// InsertMessage persists a published message. ID and CreatedAt are filled
// in when empty.
func (db *DB) InsertMessage(ctx context.Context, msg *models.BroadcastMessage) (*models.BroadcastMessage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := *msg
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = db.now()
	}
	if row.GeoPrecision == "" {
		row.GeoPrecision = models.GeoPrecisionApprox
	}
	row.Status = models.StatusPublished

	query, args, err := store.InsertMessageQuery(&row, sq.Question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInsertFailed, err)
	}

	start := time.Now()
	var stored models.BroadcastMessage
	err = withConflictRetry(ctx, func(ctx context.Context) error {
		return scanMessage(db.conn.QueryRowContext(ctx, query, args...), &stored)
	})
	metrics.RecordDBQuery(store.BackendDuckDB, "insert_message", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInsertFailed, err)
	}

	return &stored, nil
}

// QueryByBounds returns published messages inside the planned box, newest
// first. Wrapping queries still need geo.FilterWrapped.
func (db *DB) QueryByBounds(ctx context.Context, q geo.Query) ([]models.BroadcastMessage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args, err := store.BoundsQuery(q, sq.Question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrQueryFailed, err)
	}

	start := time.Now()
	messages, err := db.queryMessages(ctx, query, args...)
	metrics.RecordDBQuery(store.BackendDuckDB, "query_by_bounds", time.Since(start), err)
	if err != nil {
		if isConnectionError(err) {
			logging.Error().Err(err).Msg("DuckDB connection lost during bounds query")
		}
		return nil, fmt.Errorf("%w: %w", store.ErrQueryFailed, err)
	}

	return messages, nil
}

// ResetExpiredCounters zeroes the counters of devices whose window ended.
func (db *DB) ResetExpiredCounters(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args, err := store.ResetExpiredQuery(db.now(), sq.Question)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	var affected int64
	err = withConflictRetry(ctx, func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	metrics.RecordDBQuery(store.BackendDuckDB, "reset_expired_counters", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to reset expired counters: %w", err)
	}
	return affected, nil
}

// GetDevice loads a device row by its hashed identifier.
func (db *DB) GetDevice(ctx context.Context, deviceIDHash string) (*models.AnonymousDevice, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var d models.AnonymousDevice
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, device_id_hash, device_public_key, ip_hash, created_at, last_post_at, post_count_24h, post_count_reset_at
		FROM anonymous_devices WHERE device_id_hash = ?`, deviceIDHash,
	).Scan(&d.ID, &d.DeviceIDHash, &d.DevicePublicKey, &d.IPHash, &d.CreatedAt, &d.LastPostAt, &d.PostCount24h, &d.PostCountResetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &d, nil
}

// DeleteMessage removes a message by id.
func (db *DB) DeleteMessage(ctx context.Context, id string) error {
	return db.deleteByColumn(ctx, store.TableMessages, "id", id)
}

// DeleteDevice removes a device row by its hashed identifier.
func (db *DB) DeleteDevice(ctx context.Context, deviceIDHash string) error {
	return db.deleteByColumn(ctx, store.TableDevices, "device_id_hash", deviceIDHash)
}

func (db *DB) deleteByColumn(ctx context.Context, table, column, value string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args, err := sq.Delete(table).Where(sq.Eq{column: value}).ToSql()
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (db *DB) queryMessages(ctx context.Context, query string, args ...interface{}) ([]models.BroadcastMessage, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "message rows")

	messages := make([]models.BroadcastMessage, 0)
	for rows.Next() {
		var m models.BroadcastMessage
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanMessage reads the store.MessageColumns projection.
func scanMessage(row rowScanner, m *models.BroadcastMessage) error {
	var precision, status string
	if err := row.Scan(&m.ID, &m.Content, &m.Latitude, &m.Longitude, &precision,
		&status, &m.DeviceID, &m.ProfileID, &m.CreatedAt); err != nil {
		return err
	}
	m.GeoPrecision = models.GeoPrecision(precision)
	m.Status = models.MessageStatus(status)
	m.CreatedAt = m.CreatedAt.UTC()
	return nil
}

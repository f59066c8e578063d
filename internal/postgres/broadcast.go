// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/store"
)

// upsertDeviceSQL is the single-statement check-and-increment. The table is
// aliased because unqualified column names are ambiguous against EXCLUDED in
// PostgreSQL. Row locking inside ON CONFLICT serializes concurrent callers
// for the same device.
const upsertDeviceSQL = `
INSERT INTO anonymous_devices AS d (id, device_id_hash, ip_hash, created_at, last_post_at, post_count_24h, post_count_reset_at)
VALUES ($1, $2, $3, $4, $5, 1, $6)
ON CONFLICT (device_id_hash) DO UPDATE SET
	ip_hash = EXCLUDED.ip_hash,
	last_post_at = EXCLUDED.last_post_at,
	post_count_24h = CASE
		WHEN d.post_count_reset_at <= EXCLUDED.last_post_at THEN 1
		ELSE d.post_count_24h + 1
	END,
	post_count_reset_at = CASE
		WHEN d.post_count_reset_at <= EXCLUDED.last_post_at THEN EXCLUDED.post_count_reset_at
		ELSE d.post_count_reset_at
	END
RETURNING d.id, d.post_count_24h`

const deviceColumns = `id, device_id_hash, device_public_key, ip_hash, created_at, last_post_at, post_count_24h, post_count_reset_at`

// CheckAndIncrement atomically counts a post attempt for the device and
// reports whether it is within limit.
func (r *Repository) CheckAndIncrement(ctx context.Context, deviceIDHash, ipHash string, limit int) (*models.RateLimitResult, error) {
	now := r.now()

	start := time.Now()
	var row struct {
		ID    string `db:"id"`
		Count int    `db:"post_count_24h"`
	}
	err := r.db.QueryRowxContext(ctx, upsertDeviceSQL,
		uuid.NewString(), deviceIDHash, ipHash, now, now, now.Add(store.RateLimitWindow),
	).StructScan(&row)
	metrics.RecordDBQuery(store.BackendPostgres, "check_and_increment", time.Since(start), err)
	if err != nil {
		logPQError("check_and_increment", err)
		return nil, fmt.Errorf("%w: %w", store.ErrRateLimitCheckFailed, err)
	}

	return store.Decide(row.ID, row.Count, limit), nil
}

// InsertMessage persists a published message. ID and CreatedAt are filled
// in when empty.
func (r *Repository) InsertMessage(ctx context.Context, msg *models.BroadcastMessage) (*models.BroadcastMessage, error) {
	row := *msg
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.now()
	}
	if row.GeoPrecision == "" {
		row.GeoPrecision = models.GeoPrecisionApprox
	}
	row.Status = models.StatusPublished

	query, args, err := store.InsertMessageQuery(&row, sq.Dollar)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInsertFailed, err)
	}

	start := time.Now()
	var stored models.BroadcastMessage
	err = r.db.GetContext(ctx, &stored, query, args...)
	metrics.RecordDBQuery(store.BackendPostgres, "insert_message", time.Since(start), err)
	if err != nil {
		logPQError("insert_message", err)
		return nil, fmt.Errorf("%w: %w", store.ErrInsertFailed, err)
	}

	stored.CreatedAt = stored.CreatedAt.UTC()
	return &stored, nil
}

// QueryByBounds returns published messages inside the planned box, newest
// first. Wrapping queries still need geo.FilterWrapped.
func (r *Repository) QueryByBounds(ctx context.Context, q geo.Query) ([]models.BroadcastMessage, error) {
	query, args, err := store.BoundsQuery(q, sq.Dollar)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrQueryFailed, err)
	}

	start := time.Now()
	messages := make([]models.BroadcastMessage, 0)
	err = r.db.SelectContext(ctx, &messages, query, args...)
	metrics.RecordDBQuery(store.BackendPostgres, "query_by_bounds", time.Since(start), err)
	if err != nil {
		logPQError("query_by_bounds", err)
		return nil, fmt.Errorf("%w: %w", store.ErrQueryFailed, err)
	}

	for i := range messages {
		messages[i].CreatedAt = messages[i].CreatedAt.UTC()
	}
	return messages, nil
}

// ResetExpiredCounters zeroes the counters of devices whose window ended.
func (r *Repository) ResetExpiredCounters(ctx context.Context) (int64, error) {
	query, args, err := store.ResetExpiredQuery(r.now(), sq.Dollar)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(store.BackendPostgres, "reset_expired_counters", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to reset expired counters: %w", err)
	}
	return res.RowsAffected()
}

// GetDevice loads a device row by its hashed identifier.
func (r *Repository) GetDevice(ctx context.Context, deviceIDHash string) (*models.AnonymousDevice, error) {
	var d models.AnonymousDevice
	err := r.db.GetContext(ctx, &d,
		`SELECT `+deviceColumns+` FROM anonymous_devices WHERE device_id_hash = $1`, deviceIDHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &d, nil
}

// DeleteMessage removes a message by id.
func (r *Repository) DeleteMessage(ctx context.Context, id string) error {
	return r.deleteByColumn(ctx, store.TableMessages, "id", id)
}

// DeleteDevice removes a device and, through the foreign key, its messages.
func (r *Repository) DeleteDevice(ctx context.Context, deviceIDHash string) error {
	return r.deleteByColumn(ctx, store.TableDevices, "device_id_hash", deviceIDHash)
}

func (r *Repository) deleteByColumn(ctx context.Context, table, column, value string) error {
	query, args, err := sq.Delete(table).Where(sq.Eq{column: value}).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
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

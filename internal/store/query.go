// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package store

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/models"
)

// MessageColumns is the column list returned for every message read.
var MessageColumns = []string{
	"id", "content", "latitude", "longitude", "geo_precision",
	"status", "device_id", "profile_id", "created_at",
}

// BoundsQuery builds the bounding-box read for q. The longitude predicate is
// only emitted for non-wrapping boxes.
func BoundsQuery(q geo.Query, format sq.PlaceholderFormat) (string, []interface{}, error) {
	b := sq.StatementBuilder.PlaceholderFormat(format).
		Select(MessageColumns...).
		From(TableMessages).
		Where(sq.Eq{"status": string(models.StatusPublished)}).
		Where(sq.GtOrEq{"latitude": q.Box.MinLat}).
		Where(sq.LtOrEq{"latitude": q.Box.MaxLat})

	if !q.Wraps {
		b = b.Where(sq.GtOrEq{"longitude": q.Box.MinLng}).
			Where(sq.LtOrEq{"longitude": q.Box.MaxLng})
	}
	if q.Since != nil {
		b = b.Where(sq.GtOrEq{"created_at": q.Since.UTC()})
	}

	fetch := q.FetchLimit
	if fetch <= 0 {
		fetch = geo.NormalizeLimit(q.Limit)
	}

	sql, args, err := b.OrderBy("created_at DESC").Limit(uint64(fetch)).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build bounds query: %w", err)
	}
	return sql, args, nil
}

// InsertMessageQuery builds the insert for msg, returning the stored row.
func InsertMessageQuery(msg *models.BroadcastMessage, format sq.PlaceholderFormat) (string, []interface{}, error) {
	sql, args, err := sq.StatementBuilder.PlaceholderFormat(format).
		Insert(TableMessages).
		Columns(MessageColumns...).
		Values(
			msg.ID,
			msg.Content,
			msg.Latitude,
			msg.Longitude,
			string(msg.GeoPrecision),
			string(msg.Status),
			msg.DeviceID,
			msg.ProfileID,
			msg.CreatedAt.UTC(),
		).
		Suffix("RETURNING " + strings.Join(MessageColumns, ", ")).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert query: %w", err)
	}
	return sql, args, nil
}

// ResetExpiredQuery builds the maintenance update that zeroes counters whose
// window ended at or before now. The window timestamp itself is left alone;
// the next post starts a fresh window.
func ResetExpiredQuery(now time.Time, format sq.PlaceholderFormat) (string, []interface{}, error) {
	sql, args, err := sq.StatementBuilder.PlaceholderFormat(format).
		Update(TableDevices).
		Set("post_count_24h", 0).
		Where(sq.LtOrEq{"post_count_reset_at": now.UTC()}).
		Where(sq.Gt{"post_count_24h": 0}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build reset query: %w", err)
	}
	return sql, args, nil
}

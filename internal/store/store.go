// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package store defines the persistence contract shared by the DuckDB and
// PostgreSQL backends, along with the SQL builders both of them use.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/models"
)

// Sentinel errors. Backends wrap the driver error with one of these so the
// HTTP layer can pick the response without knowing which backend is active.
var (
	ErrRateLimitCheckFailed = errors.New("rate limit check failed")
	ErrInsertFailed         = errors.New("message insert failed")
	ErrQueryFailed          = errors.New("message query failed")
	ErrNotFound             = errors.New("not found")
)

// Backend names used as metric labels.
const (
	BackendDuckDB   = "duckdb"
	BackendPostgres = "postgres"
)

// Table names.
const (
	TableMessages = "broadcast_messages"
	TableDevices  = "anonymous_devices"
)

// RateLimitWindow is the length of a device's posting window.
const RateLimitWindow = 24 * time.Hour

// RateLimiter performs the atomic per-device check-and-increment.
//
// A call increments the device's counter even when the result is not
// allowed. ipHash is recorded on the device row but does not affect the
// decision.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, deviceIDHash, ipHash string, limit int) (*models.RateLimitResult, error)
}

// MessageStore persists and reads broadcast messages.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.BroadcastMessage) (*models.BroadcastMessage, error)
	// QueryByBounds returns published messages, newest first. For wrapping
	// queries the longitude predicate is left to geo.FilterWrapped.
	QueryByBounds(ctx context.Context, q geo.Query) ([]models.BroadcastMessage, error)
}

// Maintainer runs housekeeping against expired rate-limit windows.
type Maintainer interface {
	// ResetExpiredCounters zeroes counters whose window has ended and
	// returns the number of rows touched.
	ResetExpiredCounters(ctx context.Context) (int64, error)
}

// Store is everything a backend provides.
type Store interface {
	RateLimiter
	MessageStore
	Maintainer

	Ping(ctx context.Context) error
	Close() error
	Backend() string
}

// Clock supplies the current time. Backends default to time.Now in UTC.
type Clock func() time.Time

// SystemClock returns the current UTC time.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Decide turns a post-increment counter into a rate-limit verdict.
func Decide(deviceID string, count, limit int) *models.RateLimitResult {
	return &models.RateLimitResult{
		DeviceID:  deviceID,
		Allowed:   count <= limit,
		Remaining: max(0, limit-count),
		Count:     count,
	}
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package database

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/tomtom215/broadcastmap/internal/metrics"
)

// Pool limits. DuckDB serializes writers internally, so a handful of idle
// connections is enough.
const (
	idleConns       = 2
	connMaxLifetime = time.Hour
	connMaxIdleTime = 5 * time.Minute

	maxConflictRetries = 3
)

func (db *DB) configureConnectionPool() {
	maxOpen := db.cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = runtime.NumCPU()
	}
	db.conn.SetMaxOpenConns(maxOpen)
	db.conn.SetMaxIdleConns(idleConns)
	db.conn.SetConnMaxLifetime(connMaxLifetime)
	db.conn.SetConnMaxIdleTime(connMaxIdleTime)
}

// errClass groups driver errors by how the caller should react.
type errClass int

const (
	errOther errClass = iota
	// Two writers touched the same anonymous_devices row; the loser may retry.
	errConflict
	errConnection
	// INTERNAL errors leave the connection in an unknown state.
	errInternal
)

// The driver exposes no typed errors for these cases, only message text.
var errMarkers = []struct {
	class   errClass
	markers []string
}{
	{errInternal, []string{"INTERNAL Error"}},
	{errConflict, []string{"Transaction conflict", "Conflict on update", "cannot update a table that has been altered"}},
	{errConnection, []string{"connection refused", "connection reset", "broken pipe", "bad connection", "database is closed"}},
}

func classify(err error) errClass {
	if err == nil {
		return errOther
	}
	msg := err.Error()
	for _, group := range errMarkers {
		for _, m := range group.markers {
			if strings.Contains(msg, m) {
				return group.class
			}
		}
	}
	return errOther
}

func isTransactionConflict(err error) bool { return classify(err) == errConflict }
func isConnectionError(err error) bool     { return classify(err) == errConnection }
func isInternalError(err error) bool       { return classify(err) == errInternal }

// withConflictRetry runs fn up to maxConflictRetries times, sleeping 1ms,
// then 2ms, between conflicting attempts. Other errors return immediately.
func withConflictRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := time.Millisecond
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !isTransactionConflict(err) {
			return err
		}
		metrics.DBTransactionConflicts.Inc()
		if attempt == maxConflictRetries {
			return err
		}

		t := time.NewTimer(backoff)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
		backoff *= 2
	}
}

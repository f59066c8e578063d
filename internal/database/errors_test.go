// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockCloser implements io.Closer for testing
type mockCloser struct {
	closed bool
	err    error
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.err
}

func TestCloseHelpers(t *testing.T) {
	t.Parallel()

	closeWithLog(nil, "nil")
	closeQuietly(nil)

	ok := &mockCloser{}
	closeWithLog(ok, "ok")
	if !ok.closed {
		t.Error("closeWithLog did not close")
	}

	failing := &mockCloser{err: errors.New("close failed")}
	closeQuietly(failing)
	if !failing.closed {
		t.Error("closeQuietly did not close")
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		wantConflict bool
		wantConn     bool
		wantInternal bool
	}{
		{"nil", nil, false, false, false},
		{"conflict", errors.New("TransactionContext Error: Transaction conflict: cannot update"), true, false, false},
		{"conflict on update", errors.New("Conflict on update!"), true, false, false},
		{"closed", errors.New("sql: database is closed"), false, true, false},
		{"bad conn", errors.New("driver: bad connection"), false, true, false},
		{"internal", errors.New("INTERNAL Error: attempted to access index"), false, false, true},
		{"other", errors.New("Constraint Error"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isTransactionConflict(tt.err); got != tt.wantConflict {
				t.Errorf("isTransactionConflict() = %v, want %v", got, tt.wantConflict)
			}
			if got := isConnectionError(tt.err); got != tt.wantConn {
				t.Errorf("isConnectionError() = %v, want %v", got, tt.wantConn)
			}
			if got := isInternalError(tt.err); got != tt.wantInternal {
				t.Errorf("isInternalError() = %v, want %v", got, tt.wantInternal)
			}
		})
	}
}

func TestWithConflictRetry(t *testing.T) {
	t.Parallel()

	conflict := errors.New("Transaction conflict")

	t.Run("succeeds after conflicts", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := withConflictRetry(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return conflict
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := withConflictRetry(context.Background(), func(context.Context) error {
			calls++
			return conflict
		})
		if !errors.Is(err, conflict) || calls != maxConflictRetries {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		calls := 0
		err := withConflictRetry(context.Background(), func(context.Context) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("canceled context stops", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()
		err := withConflictRetry(ctx, func(context.Context) error { return conflict })
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want deadline exceeded", err)
		}
	})
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/broadcastmap/internal/metrics"
)

var errUpstream = errors.New("upstream failure")

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	t.Parallel()

	b := New[string](Settings{Name: "test-open", MinRequests: 10, Timeout: time.Hour})

	if b.State() != "closed" {
		t.Fatalf("initial state = %s", b.State())
	}

	// 7 failures then 3 successes: ratio is only checked on a failure, and
	// only once 10 requests have been counted.
	for i := 0; i < 10; i++ {
		fail := i < 7
		_, _ = b.Execute(func() (string, error) {
			if fail {
				return "", errUpstream
			}
			return "ok", nil
		})
	}
	if b.State() != "closed" {
		t.Fatalf("state after 10 requests = %s, want closed", b.State())
	}

	_, err := b.Execute(func() (string, error) { return "", errUpstream })
	if !errors.Is(err, errUpstream) {
		t.Fatalf("11th call error = %v", err)
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	called := false
	_, err = b.Execute(func() (string, error) {
		called = true
		return "ok", nil
	})
	if !IsOpen(err) {
		t.Errorf("error = %v, want open-state rejection", err)
	}
	if called {
		t.Error("function should not run while open")
	}

	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("test-open", "rejected")); got != 1 {
		t.Errorf("rejected counter = %v, want 1", got)
	}
}

func TestBreakerIsSuccessfulIgnoresExpectedErrors(t *testing.T) {
	t.Parallel()

	errNegative := errors.New("negative answer")
	b := New[int](Settings{
		Name:        "test-expected",
		MinRequests: 3,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNegative)
		},
	})

	for i := 0; i < 20; i++ {
		_, err := b.Execute(func() (int, error) { return 0, errNegative })
		if !errors.Is(err, errNegative) {
			t.Fatalf("error = %v, want errNegative passed through", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, expected errors should not open the circuit", b.State())
	}
}

func TestBreakerSuccessResetsConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := New[int](Settings{Name: "test-reset"})
	_, _ = b.Execute(func() (int, error) { return 0, errUpstream })
	_, _ = b.Execute(func() (int, error) { return 0, errUpstream })

	if got := testutil.ToFloat64(metrics.CircuitBreakerConsecutiveFailures.WithLabelValues("test-reset")); got != 2 {
		t.Errorf("consecutive failures = %v, want 2", got)
	}

	v, err := b.Execute(func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("Execute() = %d, %v", v, err)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerConsecutiveFailures.WithLabelValues("test-reset")); got != 0 {
		t.Errorf("consecutive failures after success = %v, want 0", got)
	}
	if b.Name() != "test-reset" {
		t.Errorf("Name() = %q", b.Name())
	}
}

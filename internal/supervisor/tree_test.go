// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// countingService runs until canceled, failing its first fails starts.
type countingService struct {
	name   string
	fails  int32
	starts atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	if n := s.starts.Add(1); n <= s.fails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewFillsDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{"zero", Config{}, DefaultConfig()},
		{"negative", Config{FailureThreshold: -1, ShutdownTimeout: -time.Second}, DefaultConfig()},
		{
			"partial",
			Config{FailureBackoff: time.Second},
			Config{FailureThreshold: 5, FailureDecay: 30, FailureBackoff: time.Second, ShutdownTimeout: 10 * time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := New(testLogger(), tt.in).Config(); got != tt.want {
				t.Errorf("Config() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTreeRestartsOnlyTheFailingService(t *testing.T) {
	t.Parallel()

	tree := New(testLogger(), Config{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})

	hub := &countingService{name: "hub"}
	flaky := &countingService{name: "maintenance", fails: 2}
	api := &countingService{name: "api"}
	tree.AddBackground(hub)
	tree.AddBackground(flaky)
	tree.AddAPI(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for flaky.starts.Load() < 3 || hub.starts.Load() < 1 || api.starts.Load() < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("starts: hub=%d flaky=%d api=%d", hub.starts.Load(), flaky.starts.Load(), api.starts.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if hub.starts.Load() != 1 || api.starts.Load() != 1 {
		t.Error("a failing sibling must not restart healthy services")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	report, err := tree.Unstopped()
	if err != nil {
		t.Fatal(err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package maintenance runs periodic housekeeping against the message store.
//
// The rate limiter resets an expired window inline on the next post, so the
// scheduled reset only keeps idle devices' counters from lingering.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/store"
)

// DefaultSchedule resets expired counters once an hour.
const DefaultSchedule = "@hourly"

// runTimeout bounds a single reset pass.
const runTimeout = 2 * time.Minute

// ErrAlreadyRunning is returned by Start on a running scheduler.
var ErrAlreadyRunning = errors.New("maintenance scheduler already running")

// Scheduler runs ResetExpiredCounters on a cron schedule.
type Scheduler struct {
	maintainer store.Maintainer
	schedule   string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler validates the schedule and returns a stopped scheduler. An
// empty schedule uses DefaultSchedule.
func NewScheduler(maintainer store.Maintainer, schedule string) (*Scheduler, error) {
	if maintainer == nil {
		return nil, errors.New("maintainer is required")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	return &Scheduler{maintainer: maintainer, schedule: schedule}, nil
}

// Schedule returns the cron expression in use.
func (s *Scheduler) Schedule() string {
	return s.schedule
}

// Start registers the job and starts the cron runner. Jobs stop when ctx is
// canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := c.AddFunc(s.schedule, func() { _, _ = s.RunOnce(s.ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("schedule counter reset: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true

	logging.Info().Str("schedule", s.schedule).Msg("Maintenance scheduler started")
	return nil
}

// Stop cancels in-flight work and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.cancel()
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	<-c.Stop().Done()
	logging.Info().Msg("Maintenance scheduler stopped")
}

// IsRunning reports whether the cron runner is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce resets expired counters immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.maintainer.ResetExpiredCounters(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to reset expired rate limit counters")
		return 0, err
	}

	metrics.RateLimitCountersReset.Add(float64(n))
	logging.Debug().
		Int64("rows", n).
		Dur("duration", time.Since(start)).
		Msg("Reset expired rate limit counters")
	return n, nil
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package services

import (
	"context"
	"fmt"
)

// Scheduler is a Start/Stop background runner such as
// *maintenance.Scheduler.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

// SchedulerService adapts a Start/Stop scheduler to suture's Serve: start,
// block until canceled, stop.
type SchedulerService struct {
	scheduler Scheduler
	name      string
}

// NewMaintenanceService wraps the counter maintenance scheduler.
func NewMaintenanceService(scheduler Scheduler) *SchedulerService {
	return &SchedulerService{scheduler: scheduler, name: "counter-maintenance"}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", s.name, err)
	}
	<-ctx.Done()
	s.scheduler.Stop()
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return s.name
}

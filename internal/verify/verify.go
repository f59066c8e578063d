// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package verify exercises a live message store end to end: schema, the
// rate-limit statement, inserts and bounding-box reads. Every row it writes
// is removed before it returns.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/tomtom215/broadcastmap/internal/database"
	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/identity"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/store"
)

// probeLimit is the daily limit used for the throwaway device.
const probeLimit = 2

// Result is the outcome of one check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Report is the outcome of a run.
type Report struct {
	Backend string
	Results []Result
}

// Failed counts failed checks.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed {
			n++
		}
	}
	return n
}

// Print writes one line per check.
func (r *Report) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Backend: %s\n\n", r.Backend)
	for _, res := range r.Results {
		mark := "PASS"
		if !res.Passed {
			mark = "FAIL"
		}
		if res.Detail != "" {
			_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", mark, res.Name, res.Detail)
		} else {
			_, _ = fmt.Fprintf(w, "[%s] %s\n", mark, res.Name)
		}
	}
	_, _ = fmt.Fprintf(w, "\n%d checks, %d failed\n", len(r.Results), r.Failed())
}

// migrationChecker is implemented by the PostgreSQL store.
type migrationChecker interface {
	HasPendingMigrations(ctx context.Context) (bool, error)
}

// versionReporter is implemented by both stores.
type versionReporter interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// statsReporter is implemented by the DuckDB store.
type statsReporter interface {
	Stats(ctx context.Context) (database.Stats, error)
}

// Inspector is the extra access verification needs beyond store.Store.
type Inspector interface {
	store.Store
	GetDevice(ctx context.Context, deviceIDHash string) (*models.AnonymousDevice, error)
	DeleteMessage(ctx context.Context, id string) error
	DeleteDevice(ctx context.Context, deviceIDHash string) error
}

type runner struct {
	ctx    context.Context
	st     Inspector
	report *Report

	deviceHash string
	deviceID   string
	messageIDs []string
}

// Run executes every check against st.
func Run(ctx context.Context, st Inspector) *Report {
	r := &runner{
		ctx:        ctx,
		st:         st,
		report:     &Report{Backend: st.Backend()},
		deviceHash: identity.Hash("verify-" + uuid.NewString()),
	}

	r.check("database reachable", r.ping)
	r.check("schema up to date", r.schema)
	r.check("rate limit creates device and counts posts", r.rateLimit)
	r.check("device row stores hashes only", r.deviceRow)
	r.check("insert and read back inside bounding box", r.insertAndQuery)
	r.check("bounding box across the antimeridian", r.wrapQuery)
	r.check("reset expired counters", r.resetCounters)
	if _, ok := st.(statsReporter); ok {
		r.check("row counts", r.stats)
	}
	r.check("cleanup", r.cleanup)

	return r.report
}

func (r *runner) check(name string, fn func(ctx context.Context) (string, error)) {
	detail, err := fn(r.ctx)
	res := Result{Name: name, Passed: err == nil, Detail: detail}
	if err != nil {
		res.Detail = err.Error()
	}
	r.report.Results = append(r.report.Results, res)
}

func (r *runner) ping(ctx context.Context) (string, error) {
	return "", r.st.Ping(ctx)
}

func (r *runner) schema(ctx context.Context) (string, error) {
	if mc, ok := r.st.(migrationChecker); ok {
		pending, err := mc.HasPendingMigrations(ctx)
		if err != nil {
			return "", err
		}
		if pending {
			return "", errors.New("migrations pending; run with DATABASE_AUTO_MIGRATE=true")
		}
	}
	if vr, ok := r.st.(versionReporter); ok {
		v, err := vr.SchemaVersion(ctx)
		if err != nil {
			return "", err
		}
		if v == 0 {
			return "", errors.New("no migrations applied")
		}
		return fmt.Sprintf("version %d", v), nil
	}
	return "", nil
}

func (r *runner) rateLimit(ctx context.Context) (string, error) {
	ipHash := identity.Hash("192.0.2.1")
	want := []struct {
		allowed   bool
		remaining int
	}{
		{true, 1},
		{true, 0},
		{false, 0},
	}

	for i, w := range want {
		rl, err := r.st.CheckAndIncrement(ctx, r.deviceHash, ipHash, probeLimit)
		if err != nil {
			return "", err
		}
		r.deviceID = rl.DeviceID
		if rl.Allowed != w.allowed || rl.Remaining != w.remaining {
			return "", fmt.Errorf("call %d: allowed=%v remaining=%d, want allowed=%v remaining=%d",
				i+1, rl.Allowed, rl.Remaining, w.allowed, w.remaining)
		}
	}
	return "", nil
}

func (r *runner) deviceRow(ctx context.Context) (string, error) {
	d, err := r.st.GetDevice(ctx, r.deviceHash)
	if err != nil {
		return "", err
	}
	if d.IPHash != identity.Hash("192.0.2.1") {
		return "", errors.New("ip_hash is not the hash of the client address")
	}
	if d.PostCount24h != probeLimit+1 {
		return "", fmt.Errorf("post_count_24h = %d, want %d", d.PostCount24h, probeLimit+1)
	}
	return "", nil
}

func (r *runner) insert(ctx context.Context, lat, lng float64) (*models.BroadcastMessage, error) {
	if r.deviceID == "" {
		return nil, errors.New("no device from rate limit check")
	}
	msg, err := r.st.InsertMessage(ctx, &models.BroadcastMessage{
		Content:      "verification message",
		Latitude:     lat,
		Longitude:    lng,
		GeoPrecision: models.GeoPrecisionExact,
		DeviceID:     r.deviceID,
	})
	if err != nil {
		return nil, err
	}
	r.messageIDs = append(r.messageIDs, msg.ID)
	return msg, nil
}

func (r *runner) insertAndQuery(ctx context.Context) (string, error) {
	msg, err := r.insert(ctx, 37.7749, -122.4194)
	if err != nil {
		return "", err
	}
	if msg.Status != models.StatusPublished {
		return "", fmt.Errorf("status = %q, want published", msg.Status)
	}

	q := geo.Plan(geo.BoundingBox{MinLat: 37, MaxLat: 38, MinLng: -123, MaxLng: -122}, nil, geo.MaxLimit)
	return r.expectFound(ctx, q, msg.ID)
}

func (r *runner) wrapQuery(ctx context.Context) (string, error) {
	msg, err := r.insert(ctx, -17.5, 179.5)
	if err != nil {
		return "", err
	}
	q := geo.Plan(geo.BoundingBox{MinLat: -18, MaxLat: -17, MinLng: 179, MaxLng: -179}, nil, geo.MaxLimit)
	return r.expectFound(ctx, q, msg.ID)
}

func (r *runner) expectFound(ctx context.Context, q geo.Query, id string) (string, error) {
	rows, err := r.st.QueryByBounds(ctx, q)
	if err != nil {
		return "", err
	}
	for _, m := range geo.FilterWrapped(q, rows) {
		if m.ID == id {
			return fmt.Sprintf("%d rows in box", len(rows)), nil
		}
	}
	return "", fmt.Errorf("message %s not returned for %s", id, q.Box.String())
}

func (r *runner) resetCounters(ctx context.Context) (string, error) {
	n, err := r.st.ResetExpiredCounters(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d rows reset", n), nil
}

func (r *runner) stats(ctx context.Context) (string, error) {
	s, err := r.st.(statsReporter).Stats(ctx)
	if err != nil {
		return "", err
	}
	if s.PublishedMessages < int64(len(r.messageIDs)) {
		return "", fmt.Errorf("%d published messages counted, %d inserted by this run", s.PublishedMessages, len(r.messageIDs))
	}
	return fmt.Sprintf("%d messages, %d devices (%d active)", s.Messages, s.Devices, s.ActiveDevices), nil
}

func (r *runner) cleanup(ctx context.Context) (string, error) {
	var errs []error
	for _, id := range r.messageIDs {
		if err := r.st.DeleteMessage(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.st.DeleteDevice(ctx, r.deviceHash); err != nil && !errors.Is(err, store.ErrNotFound) {
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

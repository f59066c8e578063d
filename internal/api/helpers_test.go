// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/broadcastmap/internal/broadcast"
	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/database"
	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/store"
)

const testDailyLimit = 20

func testConfig() *config.Config {
	return &config.Config{
		Broadcast: config.BroadcastConfig{DailyLimit: testDailyLimit},
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"https://map.example"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
		},
	}
}

// setupTestDB opens an in-memory DuckDB store.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Driver:    config.DriverDuckDB,
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeStore is an in-memory store.Store for failure injection.
type fakeStore struct {
	mu       sync.Mutex
	counts   map[string]int
	messages []models.BroadcastMessage

	rateErr  error
	queryErr error
	pingErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: map[string]int{}}
}

func (f *fakeStore) CheckAndIncrement(_ context.Context, deviceIDHash, _ string, limit int) (*models.RateLimitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rateErr != nil {
		return nil, f.rateErr
	}
	f.counts[deviceIDHash]++
	return store.Decide("dev-"+deviceIDHash, f.counts[deviceIDHash], limit), nil
}

func (f *fakeStore) InsertMessage(_ context.Context, msg *models.BroadcastMessage) (*models.BroadcastMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *msg
	stored.ID = "00000000-0000-0000-0000-00000000000" + string(rune('1'+len(f.messages)))
	stored.CreatedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f.messages = append(f.messages, stored)
	return &stored, nil
}

func (f *fakeStore) QueryByBounds(_ context.Context, q geo.Query) ([]models.BroadcastMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []models.BroadcastMessage
	for _, m := range f.messages {
		if q.Box.Contains(m.Latitude, m.Longitude) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
func (f *fakeStore) Backend() string            { return "fake" }

type fakeResolver struct {
	loc *models.Geolocation
	err error
	ip  string
}

func (r *fakeResolver) Resolve(_ context.Context, ip string) (*models.Geolocation, error) {
	r.ip = ip
	return r.loc, r.err
}

type fakePlaces struct {
	results []models.PlaceSuggestion
	err     error
	query   string
	limit   int
}

func (p *fakePlaces) Search(_ context.Context, query string, limit int) ([]models.PlaceSuggestion, error) {
	p.query, p.limit = query, limit
	return p.results, p.err
}

type testStore interface {
	broadcast.Gateway
	HealthChecker
}

type testServerOptions struct {
	store    testStore
	verifier broadcast.CaptchaVerifier
	geo      GeoResolver
	places   PlaceSearcher
	cfg      *config.Config
}

func newTestRouter(t *testing.T, opts testServerOptions) http.Handler {
	t.Helper()
	if opts.store == nil {
		opts.store = newFakeStore()
	}
	if opts.cfg == nil {
		opts.cfg = testConfig()
	}
	svc := broadcast.NewService(opts.store, opts.verifier, nil, opts.cfg.Broadcast.DailyLimit)
	h := NewHandler(Dependencies{
		Service: svc,
		Store:   opts.store,
		Geo:     opts.geo,
		Places:  opts.places,
		Config:  opts.cfg,
		Version: "test",
	})
	return NewRouter(h).SetupChi()
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

var errDatabase = errors.New("connection refused")

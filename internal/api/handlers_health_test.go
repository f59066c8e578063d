// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/broadcastmap/internal/models"
)

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	down := newFakeStore()
	down.pingErr = errDatabase

	tests := []struct {
		name       string
		store      *fakeStore
		target     string
		wantCode   int
		wantSubstr string
	}{
		{"health up", newFakeStore(), "/health", http.StatusOK, `"status":"healthy"`},
		{"health degraded", down, "/health", http.StatusOK, `"status":"degraded"`},
		{"ready", newFakeStore(), "/health/ready", http.StatusOK, `"status":"ready"`},
		{"not ready", down, "/health/ready", http.StatusServiceUnavailable, `"status":"not_ready"`},
		{"live ignores database", down, "/health/live", http.StatusOK, `"alive":true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, newTestRouter(t, testServerOptions{store: tt.store}), http.MethodGet, tt.target, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantSubstr) {
				t.Errorf("body %s missing %s", rec.Body.String(), tt.wantSubstr)
			}
		})
	}
}

func TestHealthReportsBackendAndVersion(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newTestRouter(t, testServerOptions{}), http.MethodGet, "/health", "")
	status := decodeBody[models.HealthStatus](t, rec)
	if status.Version != "test" {
		t.Errorf("version = %q", status.Version)
	}
	if status.Checks["backend"] != "fake" || status.Checks["database"] != "up" {
		t.Errorf("checks = %v", status.Checks)
	}
	if !status.Database {
		t.Error("database_connected should be true")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, testServerOptions{})
	_ = doJSON(t, router, http.MethodGet, "/api/broadcast?bbox=0,1,0,1", "")

	rec := doJSON(t, router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "broadcastmap_http_requests_total") {
		t.Error("exposition missing broadcastmap_http_requests_total")
	}
}

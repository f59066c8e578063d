// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/broadcastmap/internal/models"
)

// pingTimeout bounds the database check in health probes.
const pingTimeout = 2 * time.Second

func (h *Handler) databaseUp(ctx context.Context) bool {
	if h.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.store.Ping(ctx) == nil
}

// Health handles GET /health. It always answers 200; Status is "degraded"
// when the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbUp := h.databaseUp(r.Context())

	checks := map[string]string{"database": "down"}
	if dbUp {
		checks["database"] = "up"
	}
	if h.store != nil {
		checks["backend"] = h.store.Backend()
	}

	status := "healthy"
	if !dbUp {
		status = "degraded"
	}

	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}

	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:           status,
		Version:          h.version,
		Database:         dbUp,
		Checks:           checks,
		Uptime:           time.Since(h.startTime).Seconds(),
		WebSocketClients: clients,
	})
}

// HealthLive handles the liveness probe. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles the readiness probe: 503 until the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.databaseUp(r.Context())

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, map[string]any{
		"status":             status,
		"database_connected": ready,
		"uptime":             time.Since(h.startTime).Seconds(),
	})
}

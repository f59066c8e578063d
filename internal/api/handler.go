// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"context"
	"time"

	"github.com/tomtom215/broadcastmap/internal/broadcast"
	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/models"
	ws "github.com/tomtom215/broadcastmap/internal/websocket"
)

// GeoResolver looks up the approximate location of an IP address.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*models.Geolocation, error)
}

// PlaceSearcher returns place name suggestions.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.PlaceSuggestion, error)
}

// HealthChecker reports whether the message store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Backend() string
}

// Dependencies wires a Handler. Geo, Places and Hub are optional; their
// endpoints answer 503 when unset.
type Dependencies struct {
	Service *broadcast.Service
	Store   HealthChecker
	Geo     GeoResolver
	Places  PlaceSearcher
	Hub     *ws.Hub
	Config  *config.Config
	Version string
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_broadcast.go: create and list
//   - handlers_lookup.go: geolocation and place search
//   - handlers_stream.go: WebSocket live feed
//   - handlers_health.go: health probes
type Handler struct {
	service   *broadcast.Service
	store     HealthChecker
	geo       GeoResolver
	places    PlaceSearcher
	wsHub     *ws.Hub
	config    *config.Config
	version   string
	startTime time.Time
}

// NewHandler creates a handler. Service and Config are required.
func NewHandler(deps Dependencies) *Handler {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		service:   deps.Service,
		store:     deps.Store,
		geo:       deps.Geo,
		places:    deps.Places,
		wsHub:     deps.Hub,
		config:    deps.Config,
		version:   version,
		startTime: time.Now(),
	}
}

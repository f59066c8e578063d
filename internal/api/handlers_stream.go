// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/validation"
	ws "github.com/tomtom215/broadcastmap/internal/websocket"
)

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts origins listed in CORS_ORIGINS. A wildcard
// also admits clients that send no Origin, such as native apps.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" {
			return true
		}
		if origin != "" && allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", logging.SanitizeValue(origin, maxLoggedValue)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// BroadcastStream handles GET /api/broadcast/stream. An optional bbox query
// parameter sets the initial viewport; without it the client receives every
// new message until it sends a viewport frame.
func (h *Handler) BroadcastStream(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondErrorMessage(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	var viewport *geo.BoundingBox
	if raw := r.URL.Query().Get("bbox"); raw != "" {
		box, err := validation.ValidateBoundingBox(raw)
		if err != nil {
			respondError(w, r, err)
			return
		}
		viewport = &box
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.CtxErr(r.Context(), err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, viewport)
	select {
	case h.wsHub.Register <- client:
	case <-h.wsHub.Done():
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}

	client.Start()
}

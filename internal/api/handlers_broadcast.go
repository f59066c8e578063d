// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"net/http"

	"github.com/tomtom215/broadcastmap/internal/broadcast"
	"github.com/tomtom215/broadcastmap/internal/identity"
	"github.com/tomtom215/broadcastmap/internal/models"
)

// CreateBroadcast handles POST /api/broadcast.
//
// 201 with the stored message and remaining posts, 400 for validation or
// captcha failures, 429 when the device's daily limit is used up, 500 when
// the store fails.
func (h *Handler) CreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var body models.CreateBroadcastRequest
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.service.Create(r.Context(), broadcast.CreateRequest{
		Body:     body,
		ClientIP: identity.ClientIP(r.Header),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	msg := result.Message
	respondJSON(w, http.StatusCreated, models.CreateBroadcastResponse{
		ID:           msg.ID,
		Content:      msg.Content,
		Latitude:     msg.Latitude,
		Longitude:    msg.Longitude,
		GeoPrecision: msg.GeoPrecision,
		CreatedAt:    msg.CreatedAt,
		Remaining:    result.Remaining,
	})
}

// ListBroadcasts handles GET /api/broadcast?bbox=&since=&limit=.
func (h *Handler) ListBroadcasts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.List(r.Context(), broadcast.ListRequest{
		BBox:  q.Get("bbox"),
		Since: q.Get("since"),
		Limit: q.Get("limit"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.ListBroadcastsResponse{
		Messages: result.Messages,
		Count:    result.Count,
	})
}

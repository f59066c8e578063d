// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"net/http"

	"github.com/tomtom215/broadcastmap/internal/geoip"
	"github.com/tomtom215/broadcastmap/internal/identity"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/validation"
)

// Geolocation handles GET /api/geolocation: the approximate location of the
// caller's address, used to center the map on first load.
//
// A provider's negative answer is 400 "Geolocation failed"; a transport or
// decoding failure is 500 "Failed to get location".
func (h *Handler) Geolocation(w http.ResponseWriter, r *http.Request) {
	if h.geo == nil {
		respondErrorMessage(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	loc, err := h.geo.Resolve(r.Context(), identity.ClientIP(r.Header))
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Geolocation lookup failed")
		if geoip.IsLookupError(err) {
			respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Error:   "Geolocation failed",
				Details: err.Error(),
			})
			return
		}
		respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get location",
			Details: err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, loc)
}

// LocationSearch handles GET /api/location-search?q=&limit=.
func (h *Handler) LocationSearch(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		respondErrorMessage(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	q := r.URL.Query()
	query, err := validation.ValidateLocationQuery(q.Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, err := validation.ValidateSearchLimit(q.Get("limit"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	suggestions, err := h.places.Search(r.Context(), query, limit)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Location search failed")
		respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to search locations",
			Details: err.Error(),
		})
		return
	}
	if suggestions == nil {
		suggestions = []models.PlaceSuggestion{}
	}

	respondJSON(w, http.StatusOK, models.LocationSearchResponse{
		Suggestions: suggestions,
		Attribution: models.OSMAttribution,
	})
}

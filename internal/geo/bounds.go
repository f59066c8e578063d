// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package geo plans bounding-box reads, including viewports that cross the
// antimeridian.
package geo

import (
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/broadcastmap/internal/models"
)

// Result limits for bounding-box reads.
const (
	DefaultLimit = 200
	MaxLimit     = 500

	// wrapOverfetch multiplies the limit when the longitude predicate has to
	// be applied in memory.
	wrapOverfetch = 2
)

// BoundingBox is a validated viewport. Latitudes are within [-90, 90] with
// MinLat < MaxLat. Longitudes are only required to be finite; MinLng > MaxLng
// encodes a box that crosses the antimeridian (170 to -170 spans the Pacific).
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Wraps reports whether the longitude range crosses the antimeridian.
func (b BoundingBox) Wraps() bool {
	return b.MinLng > b.MaxLng
}

// ContainsLongitude applies the longitude half of the box predicate.
func (b BoundingBox) ContainsLongitude(lng float64) bool {
	if b.Wraps() {
		return lng >= b.MinLng || lng <= b.MaxLng
	}
	return lng >= b.MinLng && lng <= b.MaxLng
}

// Contains reports whether the point lies inside the box, edges inclusive.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && b.ContainsLongitude(lng)
}

// String renders the box in the minLat,maxLat,minLng,maxLng wire format.
func (b BoundingBox) String() string {
	parts := []string{
		strconv.FormatFloat(b.MinLat, 'f', -1, 64),
		strconv.FormatFloat(b.MaxLat, 'f', -1, 64),
		strconv.FormatFloat(b.MinLng, 'f', -1, 64),
		strconv.FormatFloat(b.MaxLng, 'f', -1, 64),
	}
	return strings.Join(parts, ",")
}

// Query is the planned shape of a bounding-box read.
//
// When Wraps is false the store filters longitude itself and fetches Limit
// rows. When Wraps is true the store omits the longitude predicate, fetches
// FetchLimit rows and the caller narrows them with FilterWrapped. Dense data
// on the excluded side of the globe can starve the result below Limit; that
// trade-off is accepted for moderate data volumes.
type Query struct {
	Box        BoundingBox
	Since      *time.Time
	Limit      int
	FetchLimit int
	Wraps      bool
}

// NormalizeLimit applies the default for non-positive values and clamps to
// MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Plan builds the query for box. since may be nil.
func Plan(box BoundingBox, since *time.Time, limit int) Query {
	limit = NormalizeLimit(limit)
	q := Query{
		Box:        box,
		Since:      since,
		Limit:      limit,
		FetchLimit: limit,
		Wraps:      box.Wraps(),
	}
	if q.Wraps {
		q.FetchLimit = limit * wrapOverfetch
	}
	return q
}

// FilterWrapped applies the in-memory longitude predicate of a wrapping query
// and truncates to the requested limit. Order is preserved. For non-wrapping
// queries rows are only truncated.
func FilterWrapped(q Query, rows []models.BroadcastMessage) []models.BroadcastMessage {
	if !q.Wraps {
		if len(rows) > q.Limit {
			return rows[:q.Limit]
		}
		return rows
	}

	filtered := make([]models.BroadcastMessage, 0, min(len(rows), q.Limit))
	for _, row := range rows {
		if !q.Box.ContainsLongitude(row.Longitude) {
			continue
		}
		filtered = append(filtered, row)
		if len(filtered) == q.Limit {
			break
		}
	}
	return filtered
}

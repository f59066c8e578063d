// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package geo

import (
	"testing"
	"time"

	"github.com/tomtom215/broadcastmap/internal/models"
)

func TestBoundingBox_Wraps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		box  BoundingBox
		want bool
	}{
		{"normal", BoundingBox{37, 38, -123, -122}, false},
		{"pacific", BoundingBox{-10, 10, 170, -170}, true},
		{"degenerate longitude", BoundingBox{0, 1, 5, 5}, false},
		{"outside canonical range", BoundingBox{0, 1, -190, -170}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.box.Wraps(); got != tt.want {
				t.Errorf("Wraps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundingBox_ContainsLongitude(t *testing.T) {
	t.Parallel()

	pacific := BoundingBox{MinLat: -10, MaxLat: 10, MinLng: 170, MaxLng: -170}
	cases := map[float64]bool{
		175:  true,
		170:  true,
		180:  true,
		-180: true,
		-170: true,
		-175: true,
		0:    false,
		169:  false,
		-169: false,
	}
	for lng, want := range cases {
		if got := pacific.ContainsLongitude(lng); got != want {
			t.Errorf("pacific.ContainsLongitude(%v) = %v, want %v", lng, got, want)
		}
	}

	normal := BoundingBox{MinLat: 37, MaxLat: 38, MinLng: -123, MaxLng: -122}
	if !normal.ContainsLongitude(-122.4194) {
		t.Error("normal box should contain -122.4194")
	}
	if normal.ContainsLongitude(0) {
		t.Error("normal box should not contain 0")
	}
}

func TestBoundingBox_Contains(t *testing.T) {
	t.Parallel()

	box := BoundingBox{MinLat: 37, MaxLat: 38, MinLng: -123, MaxLng: -122}
	if !box.Contains(37.7749, -122.4194) {
		t.Error("expected San Francisco to be inside")
	}
	if box.Contains(39, -122.4194) {
		t.Error("latitude 39 should be outside")
	}
	if !box.Contains(37, -123) {
		t.Error("edges are inclusive")
	}
}

func TestBoundingBox_String(t *testing.T) {
	t.Parallel()

	box := BoundingBox{MinLat: 37, MaxLat: 38.5, MinLng: 170, MaxLng: -170}
	if got, want := box.String(), "37,38.5,170,-170"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{1, 1},
		{200, 200},
		{500, 500},
		{501, MaxLimit},
		{10000, MaxLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Errorf("NormalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q := Plan(BoundingBox{37, 38, -123, -122}, &since, 50)
	if q.Wraps {
		t.Error("normal box should not wrap")
	}
	if q.Limit != 50 || q.FetchLimit != 50 {
		t.Errorf("Limit/FetchLimit = %d/%d, want 50/50", q.Limit, q.FetchLimit)
	}
	if q.Since == nil || !q.Since.Equal(since) {
		t.Errorf("Since = %v, want %v", q.Since, since)
	}

	q = Plan(BoundingBox{-10, 10, 170, -170}, nil, 0)
	if !q.Wraps {
		t.Error("pacific box should wrap")
	}
	if q.Limit != DefaultLimit || q.FetchLimit != 2*DefaultLimit {
		t.Errorf("Limit/FetchLimit = %d/%d, want %d/%d", q.Limit, q.FetchLimit, DefaultLimit, 2*DefaultLimit)
	}

	q = Plan(BoundingBox{-10, 10, 170, -170}, nil, 900)
	if q.Limit != MaxLimit || q.FetchLimit != 2*MaxLimit {
		t.Errorf("Limit/FetchLimit = %d/%d, want %d/%d", q.Limit, q.FetchLimit, MaxLimit, 2*MaxLimit)
	}
}

func msgAt(id string, lng float64) models.BroadcastMessage {
	return models.BroadcastMessage{ID: id, Latitude: 0, Longitude: lng}
}

func TestFilterWrapped(t *testing.T) {
	t.Parallel()

	t.Run("applies OR predicate", func(t *testing.T) {
		t.Parallel()
		q := Plan(BoundingBox{-10, 10, 170, -170}, nil, 10)
		rows := []models.BroadcastMessage{msgAt("a", 175), msgAt("b", 0), msgAt("c", -175)}

		got := FilterWrapped(q, rows)
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].ID != "a" || got[1].ID != "c" {
			t.Errorf("got ids %s,%s, want a,c (order preserved)", got[0].ID, got[1].ID)
		}
	})

	t.Run("truncates to limit", func(t *testing.T) {
		t.Parallel()
		q := Plan(BoundingBox{-10, 10, 170, -170}, nil, 2)
		rows := []models.BroadcastMessage{msgAt("a", 171), msgAt("b", 0), msgAt("c", 172), msgAt("d", 173)}

		got := FilterWrapped(q, rows)
		if len(got) != 2 || got[1].ID != "c" {
			t.Errorf("got %v, want [a c]", got)
		}
	})

	t.Run("non wrapping only truncates", func(t *testing.T) {
		t.Parallel()
		q := Plan(BoundingBox{-10, 10, -20, 20}, nil, 1)
		rows := []models.BroadcastMessage{msgAt("a", 100), msgAt("b", 0)}

		got := FilterWrapped(q, rows)
		if len(got) != 1 || got[0].ID != "a" {
			t.Errorf("got %v, want [a]", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		q := Plan(BoundingBox{-10, 10, 170, -170}, nil, 5)
		if got := FilterWrapped(q, nil); len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})
}

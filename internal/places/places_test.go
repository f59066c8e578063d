// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/broadcastmap/internal/cache"
	"github.com/tomtom215/broadcastmap/internal/config"
)

const nominatimBody = `[
	{"place_id":240109189,"lat":"48.8588897","lon":"2.3200410","display_name":"Paris, Île-de-France, France métropolitaine, France","class":"boundary","type":"administrative","importance":0.88},
	{"place_id":1,"lat":"not-a-number","lon":"0","display_name":"Broken","class":"x","type":"y","importance":0.1},
	{"place_id":7,"lat":"33.66","lon":"-95.55","display_name":"<b>Paris</b>, Texas & more","class":"place","type":"city","importance":0.51}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc, store cache.Store) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.PlacesConfig{
		BaseURL:       srv.URL,
		UserAgent:     "broadcastmap-test/1.0",
		RatePerSecond: 1000,
		Timeout:       time.Second,
	}, store, time.Minute)
}

func TestSearchMapsResults(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("q") != "paris" || q.Get("format") != "json" || q.Get("limit") != "5" || q.Get("addressdetails") != "1" {
			t.Errorf("query = %v", q)
		}
		if r.Header.Get("User-Agent") != "broadcastmap-test/1.0" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		_, _ = w.Write([]byte(nominatimBody))
	}, nil)

	got, err := c.Search(context.Background(), "paris", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (unparseable row skipped)", len(got))
	}

	first := got[0]
	if first.ID != 240109189 || first.Latitude != 48.8588897 || first.Longitude != 2.3200410 {
		t.Errorf("first = %+v", first)
	}
	if first.Class != "boundary" || first.Type != "administrative" || first.Importance != 0.88 {
		t.Errorf("first = %+v", first)
	}
	if got[1].Name != "Paris, Texas & more" {
		t.Errorf("sanitized name = %q", got[1].Name)
	}
}

func TestSearchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("{")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, tt.handler, nil)
			if _, err := c.Search(context.Background(), "x", 1); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSearchUsesCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(nominatimBody))
	}, cache.NewMemory(10))

	for i := 0; i < 3; i++ {
		got, err := c.Search(context.Background(), "Paris", 5)
		if err != nil || len(got) != 2 {
			t.Fatalf("Search() = %v, %v", got, err)
		}
	}
	if _, err := c.Search(context.Background(), "paris", 5); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}

	if _, err := c.Search(context.Background(), "paris", 3); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("different limit should miss, calls = %d", calls.Load())
	}
}

func TestSearchHonorsContextWhilePaced(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(config.PlacesConfig{BaseURL: srv.URL, UserAgent: "t", RatePerSecond: 0.01}, nil, time.Minute)
	if _, err := c.Search(context.Background(), "a", 1); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Search(ctx, "b", 1); err == nil {
		t.Error("second search should fail while paced past the deadline")
	}
}

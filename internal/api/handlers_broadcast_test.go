// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/broadcastmap/internal/captcha"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/store"
)

func TestCreateAndListBroadcastDuckDB(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	router := newTestRouter(t, testServerOptions{store: db})

	rec := doJSON(t, router, http.MethodPost, "/api/broadcast",
		`{"content":"Hello","latitude":37.7749,"longitude":-122.4194,"device_id_hash":"abc"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	created := decodeBody[models.CreateBroadcastResponse](t, rec)
	if created.ID == "" || created.Content != "Hello" {
		t.Errorf("created = %+v", created)
	}
	if created.Remaining != testDailyLimit-1 {
		t.Errorf("remaining = %d, want %d", created.Remaining, testDailyLimit-1)
	}
	if created.GeoPrecision != models.GeoPrecisionApprox {
		t.Errorf("geo_precision = %q, want approx", created.GeoPrecision)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/broadcast?bbox=37,38,-123,-122", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, body %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[models.ListBroadcastsResponse](t, rec)
	if list.Count != 1 || len(list.Messages) != 1 || list.Messages[0].ID != created.ID {
		t.Fatalf("list = %+v, want the created message", list)
	}
	if strings.Contains(rec.Body.String(), "device_id") || strings.Contains(rec.Body.String(), "status") {
		t.Errorf("list body leaks internal fields: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/broadcast?bbox=0,1,0,1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"messages":[]`) {
		t.Errorf("empty area = %d %s, want 200 with []", rec.Code, rec.Body.String())
	}
}

func TestCreateBroadcastDailyLimitDuckDB(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	router := newTestRouter(t, testServerOptions{store: db})
	body := `{"content":"spam","latitude":1,"longitude":2,"device_id_hash":"limit-test"}`

	for i := 1; i <= testDailyLimit; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/broadcast", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("post %d status = %d, body %s", i, rec.Code, rec.Body.String())
		}
		if got := decodeBody[models.CreateBroadcastResponse](t, rec).Remaining; got != testDailyLimit-i {
			t.Fatalf("post %d remaining = %d, want %d", i, got, testDailyLimit-i)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/broadcast", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("post %d status = %d, want 429", testDailyLimit+1, rec.Code)
	}
	resp := decodeBody[models.ErrorResponse](t, rec)
	if resp.Error != "Rate limit exceeded" {
		t.Errorf("error = %q", resp.Error)
	}
	if want := fmt.Sprintf("Maximum %d posts per 24 hours allowed", testDailyLimit); resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
	if resp.Remaining == nil || *resp.Remaining != 0 {
		t.Errorf("remaining = %v, want 0", resp.Remaining)
	}
}

func TestCreateBroadcastBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantError string
	}{
		{
			name:      "malformed json",
			body:      `{"content":`,
			wantCode:  http.StatusBadRequest,
			wantError: msgInvalidBody,
		},
		{
			name:      "content too long",
			body:      `{"content":"` + strings.Repeat("a", 241) + `","latitude":1,"longitude":1,"device_id_hash":"d"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Content exceeds maximum length of 240 characters",
		},
		{
			name:      "content only tags",
			body:      `{"content":"<b></b>","latitude":1,"longitude":1,"device_id_hash":"d"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Content cannot be empty",
		},
		{
			name:      "latitude out of range",
			body:      `{"content":"hi","latitude":91,"longitude":1,"device_id_hash":"d"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Latitude must be between -90 and 90",
		},
		{
			name:     "missing device",
			body:     `{"content":"hi","latitude":1,"longitude":1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:      "oversized body",
			body:      `{"content":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
			wantCode:  http.StatusRequestEntityTooLarge,
			wantError: msgBodyTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(t, testServerOptions{})
			rec := doJSON(t, router, http.MethodPost, "/api/broadcast", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			resp := decodeBody[models.ErrorResponse](t, rec)
			if resp.Error == "" {
				t.Error("error field is empty")
			}
			if tt.wantError != "" && resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestCreateBroadcastInvalidUTF8KeepsQuota(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	router := newTestRouter(t, testServerOptions{store: db})

	// 240 raw bytes passes a naive byte count but is not text.
	rec := doJSON(t, router, http.MethodPost, "/api/broadcast",
		`{"content":"`+strings.Repeat("\xff", 240)+`","latitude":1,"longitude":1,"device_id_hash":"utf8-content"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("content status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
	if _, err := db.GetDevice(context.Background(), "utf8-content"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetDevice() error = %v, want ErrNotFound for a rejected post", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/broadcast",
		`{"content":"hi","latitude":1,"longitude":1,"device_id_hash":"utf8-`+"\xff"+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("device hash status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}

	// Valid multibyte text at exactly 240 bytes is accepted.
	rec = doJSON(t, router, http.MethodPost, "/api/broadcast",
		`{"content":"`+strings.Repeat("€", 80)+`","latitude":1,"longitude":1,"device_id_hash":"utf8-ok"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestCreateBroadcastUpstreamFailure(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.rateErr = errDatabase
	router := newTestRouter(t, testServerOptions{store: fs})

	rec := doJSON(t, router, http.MethodPost, "/api/broadcast",
		`{"content":"hi","latitude":1,"longitude":1,"device_id_hash":"d"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[models.ErrorResponse](t, rec)
	if resp.Error != "Failed to check rate limit" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Details != errDatabase.Error() {
		t.Errorf("details = %v", resp.Details)
	}
}

type stubVerifier struct {
	verdict  *captcha.Verdict
	remoteIP string
}

func (v *stubVerifier) Enabled() bool { return true }

func (v *stubVerifier) Verify(_ context.Context, _, remoteIP string) (*captcha.Verdict, error) {
	v.remoteIP = remoteIP
	return v.verdict, nil
}

func TestCreateBroadcastCaptchaRejected(t *testing.T) {
	t.Parallel()

	verifier := &stubVerifier{verdict: &captcha.Verdict{ErrorCodes: []string{"invalid-input-response"}}}
	router := newTestRouter(t, testServerOptions{verifier: verifier})

	rec := doJSON(t, router, http.MethodPost, "/api/broadcast",
		`{"content":"hi","latitude":1,"longitude":1,"device_id_hash":"d","captcha_token":"bad"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"error":"Captcha verification failed"`) ||
		!strings.Contains(rec.Body.String(), `"details":["invalid-input-response"]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if verifier.remoteIP != "203.0.113.7" {
		t.Errorf("remoteip = %q, want the forwarded address", verifier.remoteIP)
	}
}

func TestListBroadcastsErrors(t *testing.T) {
	t.Parallel()

	failing := newFakeStore()
	failing.queryErr = errDatabase

	tests := []struct {
		name      string
		store     *fakeStore
		target    string
		wantCode  int
		wantError string
	}{
		{"missing bbox", nil, "/api/broadcast", http.StatusBadRequest, "Missing required parameter: bbox"},
		{"malformed bbox", nil, "/api/broadcast?bbox=1,2,3", http.StatusBadRequest, ""},
		{"inverted latitudes", nil, "/api/broadcast?bbox=10,5,0,1", http.StatusBadRequest, ""},
		{"bad since", nil, "/api/broadcast?bbox=0,1,0,1&since=yesterday", http.StatusBadRequest, ""},
		{"store failure", failing, "/api/broadcast?bbox=0,1,0,1", http.StatusInternalServerError, "Failed to fetch messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := testServerOptions{}
			if tt.store != nil {
				opts.store = tt.store
			}
			rec := doJSON(t, newTestRouter(t, opts), http.MethodGet, tt.target, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantError != "" {
				if got := decodeBody[models.ErrorResponse](t, rec).Error; got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			}
		})
	}
}

func TestListBroadcastsAcrossAntimeridian(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	router := newTestRouter(t, testServerOptions{store: fs})

	for _, lng := range []float64{175, 0, -175} {
		body := fmt.Sprintf(`{"content":"p","latitude":-17,"longitude":%v,"device_id_hash":"fiji"}`, lng)
		if rec := doJSON(t, router, http.MethodPost, "/api/broadcast", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/broadcast?bbox=-20,-10,170,-170", "")
	list := decodeBody[models.ListBroadcastsResponse](t, rec)
	if list.Count != 2 {
		t.Fatalf("count = %d, want 2 (175 and -175)", list.Count)
	}
	for _, m := range list.Messages {
		if m.Longitude == 0 {
			t.Error("longitude 0 lies outside a box crossing the antimeridian")
		}
	}
}

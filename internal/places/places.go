// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package places proxies place-name search to a Nominatim instance, honoring
// the OpenStreetMap usage policy: an identifying User-Agent, at most one
// request per second, and cached repeat queries.
package places

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"github.com/tomtom215/broadcastmap/internal/breaker"
	"github.com/tomtom215/broadcastmap/internal/cache"
	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/models"
)

const (
	serviceName = "nominatim"
	cacheName   = "places"
)

type nominatimResult struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Client searches place names.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	breaker   *breaker.Breaker[[]models.PlaceSuggestion]
	policy    *bluemonday.Policy
	cache     cache.Store
	ttl       time.Duration
}

// New creates a client. store may be nil to disable caching.
func New(cfg config.PlacesConfig, store cache.Store, ttl time.Duration) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Client{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		breaker:   breaker.New[[]models.PlaceSuggestion](breaker.Settings{Name: serviceName}),
		policy:    bluemonday.StrictPolicy(),
		cache:     store,
		ttl:       ttl,
	}
}

// Search returns up to limit suggestions for query. query must already be
// validated and non-empty.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.PlaceSuggestion, error) {
	key := cache.GenerateKey(cacheName, map[string]interface{}{"q": strings.ToLower(query), "limit": limit})
	if c.cache != nil {
		if cached, ok := cache.GetJSON[[]models.PlaceSuggestion](ctx, c.cache, cacheName, key); ok {
			return *cached, nil
		}
	}

	start := time.Now()
	suggestions, err := c.breaker.Execute(func() ([]models.PlaceSuggestion, error) {
		return c.search(ctx, query, limit)
	})
	metrics.RecordUpstream(serviceName, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		cache.SetJSON(ctx, c.cache, cacheName, key, suggestions, c.ttl)
	}
	return suggestions, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]models.PlaceSuggestion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nominatim rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Nominatim API error: %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode Nominatim response: %w", err)
	}

	suggestions := make([]models.PlaceSuggestion, 0, len(results))
	for i := range results {
		s, ok := c.toSuggestion(&results[i])
		if !ok {
			logging.Ctx(ctx).Debug().Int64("place_id", results[i].PlaceID).Msg("Skipping place with unparseable coordinates")
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

func (c *Client) toSuggestion(r *nominatimResult) (models.PlaceSuggestion, bool) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return models.PlaceSuggestion{}, false
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return models.PlaceSuggestion{}, false
	}

	return models.PlaceSuggestion{
		ID:         r.PlaceID,
		Name:       c.sanitize(r.DisplayName),
		Latitude:   lat,
		Longitude:  lng,
		Type:       c.sanitize(r.Type),
		Class:      c.sanitize(r.Class),
		Importance: r.Importance,
	}, true
}

// sanitize drops markup and returns plain text; the strict policy escapes
// entities, so they are unescaped again for JSON.
func (c *Client) sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}

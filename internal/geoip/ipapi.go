// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package geoip

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/broadcastmap/internal/models"
)

// ipAPIFields limits the response to what we map.
const ipAPIFields = "status,message,country,regionName,city,lat,lon"

// IPAPIProvider uses the free ip-api.com endpoint (no key, 45 requests/min).
type IPAPIProvider struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
}

type ipAPIResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// NewIPAPIProvider creates an ip-api.com provider rooted at baseURL
// (http://ip-api.com/json in production).
func NewIPAPIProvider(client *http.Client, baseURL, userAgent string) *IPAPIProvider {
	return &IPAPIProvider{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/45), 45),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Name returns the provider name.
func (p *IPAPIProvider) Name() string {
	return "ip-api.com"
}

// IsAvailable always returns true; no credentials are needed.
func (p *IPAPIProvider) IsAvailable() bool {
	return true
}

// Lookup queries ip-api.com. Reserved and private ranges map to
// UnknownGeolocation; any other "fail" status is a *LookupError.
func (p *IPAPIProvider) Lookup(ctx context.Context, ipAddress string) (*models.Geolocation, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ip-api.com rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s?fields=%s", p.baseURL, url.PathEscape(ipAddress), ipAPIFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip-api.com: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ip-api.com response: %w", err)
	}

	if result.Status != "success" {
		msg := strings.ToLower(result.Message)
		if strings.Contains(msg, "reserved") || strings.Contains(msg, "private") {
			return UnknownGeolocation(), nil
		}
		return nil, &LookupError{Provider: p.Name(), Message: result.Message}
	}

	return newGeolocation(result.Lat, result.Lon, result.City, result.RegionName, result.Country), nil
}

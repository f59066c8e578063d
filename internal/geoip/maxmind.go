// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package geoip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/broadcastmap/internal/models"
)

// DefaultMaxMindURL is the GeoLite2 City web service endpoint.
const DefaultMaxMindURL = "https://geolite.info/geoip/v2.1/city"

// MaxMindProvider queries the GeoLite2 web service with an account ID and
// license key sent as basic auth.
type MaxMindProvider struct {
	client     *http.Client
	endpoint   string
	accountID  string
	licenseKey string
}

// localized is MaxMind's per-language name map.
type localized struct {
	Names map[string]string `json:"names"`
}

func (l localized) en() string { return l.Names["en"] }

type cityRecord struct {
	City         localized   `json:"city"`
	Country      localized   `json:"country"`
	Subdivisions []localized `json:"subdivisions"`
	Location     struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

func (r *cityRecord) geolocation() *models.Geolocation {
	var region string
	if len(r.Subdivisions) > 0 {
		region = r.Subdivisions[0].en()
	}
	return newGeolocation(r.Location.Latitude, r.Location.Longitude, r.City.en(), region, r.Country.en())
}

// NewMaxMindProvider returns a provider for endpoint, or DefaultMaxMindURL
// when endpoint is empty.
func NewMaxMindProvider(client *http.Client, accountID, licenseKey, endpoint string) *MaxMindProvider {
	if endpoint == "" {
		endpoint = DefaultMaxMindURL
	}
	return &MaxMindProvider{
		client:     client,
		endpoint:   strings.TrimRight(endpoint, "/"),
		accountID:  accountID,
		licenseKey: licenseKey,
	}
}

func (p *MaxMindProvider) Name() string { return "maxmind-geolite2" }

// IsAvailable reports whether credentials are configured.
func (p *MaxMindProvider) IsAvailable() bool {
	return p.accountID != "" && p.licenseKey != ""
}

func (p *MaxMindProvider) Lookup(ctx context.Context, ipAddress string) (*models.Geolocation, error) {
	if !p.IsAvailable() {
		return nil, errors.New("maxmind: credentials not configured")
	}
	addr, err := netip.ParseAddr(ipAddress)
	if err != nil {
		return nil, &LookupError{Provider: p.Name(), Message: "invalid query"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/"+addr.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("maxmind: build request: %w", err)
	}
	req.SetBasicAuth(p.accountID, p.licenseKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("maxmind: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.failure(resp)
	}

	var rec cityRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("maxmind: decode response: %w", err)
	}
	return rec.geolocation(), nil
}

// failure turns a non-200 reply into a result. Reserved ranges are an
// unknown location, a missing or invalid address is a negative answer, and
// anything else (auth, quota, outage) is a provider failure.
func (p *MaxMindProvider) failure(resp *http.Response) (*models.Geolocation, error) {
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		return nil, fmt.Errorf("maxmind: status %d", resp.StatusCode)
	}

	switch body.Code {
	case "IP_ADDRESS_RESERVED":
		return UnknownGeolocation(), nil
	case "IP_ADDRESS_INVALID", "IP_ADDRESS_NOT_FOUND":
		return nil, &LookupError{Provider: p.Name(), Message: body.Error}
	}
	return nil, fmt.Errorf("maxmind: %s: %s", body.Code, body.Error)
}

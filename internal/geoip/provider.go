// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/tomtom215/broadcastmap/internal/models"
)

// Provider looks up the approximate location of a public IP address.
type Provider interface {
	// Lookup returns the location for ipAddress. A provider that answers
	// but cannot place the address returns a *LookupError.
	Lookup(ctx context.Context, ipAddress string) (*models.Geolocation, error)

	// Name returns the provider name for logging and metrics.
	Name() string

	// IsAvailable reports whether the provider is configured.
	IsAvailable() bool
}

// LookupError is a well-formed negative answer from a provider, such as
// "invalid query". It is not a transport failure.
type LookupError struct {
	Provider string
	Message  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup failed: %s", e.Provider, e.Message)
}

// IsLookupError reports whether err carries a *LookupError.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// ErrNoProviders is returned when no provider is configured.
var ErrNoProviders = errors.New("no GeoIP providers available")

// UnknownGeolocation is the answer for addresses that cannot be placed.
func UnknownGeolocation() *models.Geolocation {
	return &models.Geolocation{Location: models.UnknownLocation}
}

// newGeolocation fills Location from the non-empty parts.
func newGeolocation(lat, lng float64, city, region, country string) *models.Geolocation {
	g := &models.Geolocation{Latitude: lat, Longitude: lng}

	parts := make([]string, 0, 3)
	if city != "" {
		g.City = &city
		parts = append(parts, city)
	}
	if region != "" {
		g.Region = &region
		parts = append(parts, region)
	}
	if country != "" {
		g.Country = &country
		parts = append(parts, country)
	}

	g.Location = strings.Join(parts, ", ")
	if g.Location == "" {
		g.Location = models.UnknownLocation
	}
	return g
}

var privateNetworks = mustParseCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10", // carrier-grade NAT
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateIP reports whether ipStr is in a private, loopback or link-local
// range. Unparseable input is not private.
func IsPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range privateNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// IsPublicIP reports whether ipStr parses and is routable.
func IsPublicIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil || ip.IsUnspecified() || ip.IsMulticast() {
		return false
	}
	return !IsPrivateIP(ipStr)
}

// NormalizeIP strips a port and IPv6 brackets: "[::1]:80" -> "::1",
// "1.2.3.4:80" -> "1.2.3.4".
func NormalizeIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "[") {
		if idx := strings.LastIndex(addr, "]:"); idx != -1 {
			return addr[1:idx]
		}
		return strings.Trim(addr, "[]")
	}
	// A single colon is host:port; more is a bare IPv6 address.
	if strings.Count(addr, ":") == 1 {
		host, _, _ := strings.Cut(addr, ":")
		return host
	}
	return addr
}

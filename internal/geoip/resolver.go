// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package geoip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tomtom215/broadcastmap/internal/breaker"
	"github.com/tomtom215/broadcastmap/internal/cache"
	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/identity"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/models"
)

const cacheName = "geoip"

type guardedProvider struct {
	Provider
	breaker *breaker.Breaker[*models.Geolocation]
}

// Resolver answers lookups from the cache first, then from providers in
// order until one succeeds.
type Resolver struct {
	providers []guardedProvider
	cache     cache.Store
	ttl       time.Duration
}

// New builds a resolver from configuration. The configured provider is tried
// first; MaxMind is added as a fallback when credentials are present.
func New(cfg config.GeoIPConfig, userAgent string, store cache.Store, ttl time.Duration) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	ipapi := NewIPAPIProvider(client, cfg.IPAPIURL, userAgent)
	maxmind := NewMaxMindProvider(client, cfg.MaxMindAccountID, cfg.MaxMindLicenseKey, "")

	if cfg.Provider == config.GeoIPProviderMaxMind {
		return NewResolver(store, ttl, maxmind, ipapi)
	}
	return NewResolver(store, ttl, ipapi, maxmind)
}

// NewResolver creates a resolver over providers. store may be nil.
func NewResolver(store cache.Store, ttl time.Duration, providers ...Provider) *Resolver {
	r := &Resolver{cache: store, ttl: ttl}
	for _, p := range providers {
		r.providers = append(r.providers, guardedProvider{
			Provider: p,
			breaker: breaker.New[*models.Geolocation](breaker.Settings{
				Name:         "geoip-" + p.Name(),
				IsSuccessful: func(err error) bool { return err == nil || IsLookupError(err) },
			}),
		})
	}
	return r
}

// Resolve returns the location of ipAddress. Private, loopback and missing
// addresses resolve to UnknownGeolocation without an outbound call. A
// provider's negative answer is returned as a *LookupError; any other error
// means no provider could be reached.
func (r *Resolver) Resolve(ctx context.Context, ipAddress string) (*models.Geolocation, error) {
	ip := NormalizeIP(ipAddress)

	if ip == "" || ip == identity.UnknownIP || IsPrivateIP(ip) {
		logging.Ctx(ctx).Debug().Msg("Client address is private or unknown, skipping geolocation")
		return UnknownGeolocation(), nil
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, &LookupError{Provider: "geoip", Message: "invalid query"}
	}
	if parsed.IsUnspecified() {
		return UnknownGeolocation(), nil
	}

	key := cache.GenerateKey(cacheName, ip)
	if r.cache != nil {
		if g, ok := cache.GetJSON[models.Geolocation](ctx, r.cache, cacheName, key); ok {
			return g, nil
		}
	}

	g, err := r.tryProviders(ctx, ip)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		cache.SetJSON(ctx, r.cache, cacheName, key, g, r.ttl)
	}
	return g, nil
}

func (r *Resolver) tryProviders(ctx context.Context, ip string) (*models.Geolocation, error) {
	var lastErr, negative error

	for _, p := range r.providers {
		if !p.IsAvailable() {
			continue
		}

		start := time.Now()
		g, err := p.breaker.Execute(func() (*models.Geolocation, error) {
			return p.Lookup(ctx, ip)
		})
		metrics.RecordUpstream(p.breaker.Name(), time.Since(start), err)
		if err == nil {
			return g, nil
		}

		logging.Ctx(ctx).Debug().Err(err).Str("provider", p.Name()).Msg("GeoIP provider failed")
		if IsLookupError(err) {
			negative = err
		} else {
			lastErr = err
		}
	}

	// A definite answer from any provider beats a transport failure.
	if negative != nil {
		return nil, negative
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all GeoIP providers failed: %w", lastErr)
	}
	return nil, ErrNoProviders
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package cache stores upstream lookup results (IP geolocation and place
// search) so repeated requests do not hit rate-limited third-party services.
//
// Two backends implement Store:
//
//   - Memory: bounded LRU with per-entry TTL, used for single-node deployments
//   - Redis: shared cache via redis/go-redis v9 when REDIS_URL is set
//
// Values are JSON encoded with goccy/go-json through GetJSON and SetJSON,
// which also record cache_hits_total and cache_misses_total. Cache failures
// never fail a request; they degrade to a miss.
//
//	if loc, ok := cache.GetJSON[models.Geolocation](ctx, store, "geoip", key); ok {
//	    return loc, nil
//	}
package cache

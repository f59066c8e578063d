// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
)

// Store is a byte-oriented cache with per-entry TTL.
type Store interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
	// Backend is "memory" or "redis".
	Backend() string
}

// defaultMemoryCapacity bounds the in-memory cache.
const defaultMemoryCapacity = 10000

// New returns a Redis cache when cfg.RedisURL is set and an in-memory LRU
// otherwise.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if cfg.RedisURL == "" {
		return NewMemory(defaultMemoryCapacity), nil
	}
	r, err := NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GenerateKey creates a cache key from a namespace and parameters.
func GenerateKey(namespace string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", namespace, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", namespace, hash[:16])
}

// GetJSON decodes a cached JSON value into T. Backend errors and corrupt
// entries are logged and reported as misses so callers fall through to the
// origin.
func GetJSON[T any](ctx context.Context, s Store, name, key string) (*T, bool) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		logging.Warn().Err(err).Str("cache", name).Str("backend", s.Backend()).Msg("Cache read failed")
		metrics.RecordCacheLookup(name, false)
		return nil, false
	}
	if !ok {
		metrics.RecordCacheLookup(name, false)
		return nil, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.Warn().Err(err).Str("cache", name).Msg("Discarding undecodable cache entry")
		_ = s.Delete(ctx, key)
		metrics.RecordCacheLookup(name, false)
		return nil, false
	}

	metrics.RecordCacheLookup(name, true)
	return &v, true
}

// SetJSON encodes v and stores it. Failures are logged, never returned.
func SetJSON(ctx context.Context, s Store, name, key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		logging.Warn().Err(err).Str("cache", name).Msg("Failed to encode cache entry")
		return
	}
	if err := s.Set(ctx, key, raw, ttl); err != nil {
		logging.Warn().Err(err).Str("cache", name).Str("backend", s.Backend()).Msg("Cache write failed")
	}
}

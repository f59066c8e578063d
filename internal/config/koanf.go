// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/broadcastmap/config.yaml",
	"/etc/broadcastmap/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultDailyLimit is the per-device post allowance per 24 hours.
const DefaultDailyLimit = 20

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Driver:       DriverDuckDB,
			Path:         "/data/broadcastmap.duckdb",
			MaxMemory:    "1GB",
			Threads:      0, // 0 = runtime.NumCPU()
			MaxOpenConns: 10,
			AutoMigrate:  true,
		},
		Broadcast: BroadcastConfig{
			DailyLimit:          DefaultDailyLimit,
			MaintenanceSchedule: "@hourly",
		},
		Captcha: CaptchaConfig{
			VerifyURL: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
			Timeout:   5 * time.Second,
		},
		GeoIP: GeoIPConfig{
			Provider: GeoIPProviderIPAPI,
			IPAPIURL: "http://ip-api.com/json",
			Timeout:  10 * time.Second,
		},
		Places: PlacesConfig{
			BaseURL:       "https://nominatim.openstreetmap.org",
			UserAgent:     "Broadcastmap/1.0 (https://github.com/tomtom215/broadcastmap)",
			RatePerSecond: 1,
			Timeout:       10 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf layers defaults, then the optional YAML file, then the
// environment (after .env files outside production), and validates the
// result.
func LoadWithKoanf() (*Config, error) {
	loadDotEnv()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitListValues(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// findConfigFile prefers CONFIG_PATH, then the first existing default path.
func findConfigFile() string {
	candidates := DefaultConfigPaths
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		candidates = append([]string{p}, DefaultConfigPaths...)
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// listKeys hold []string values that arrive from the environment as a single
// comma-separated string.
var listKeys = []string{"security.cors_origins"}

func splitListValues(k *koanf.Koanf) error {
	for _, key := range listKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		if err := k.Set(key, items); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Database
	"database_driver":         "database.driver",
	"database_url":            "database.url",
	"database_max_open_conns": "database.max_open_conns",
	"database_auto_migrate":   "database.auto_migrate",
	"duckdb_path":             "database.path",
	"duckdb_max_memory":       "database.max_memory",
	"duckdb_threads":          "database.threads",

	// Broadcast policy
	"broadcast_rate_limit_per_24h":   "broadcast.daily_limit",
	"broadcast_maintenance_schedule": "broadcast.maintenance_schedule",

	// Captcha
	"turnstile_secret_key": "captcha.secret_key",
	"captcha_verify_url":   "captcha.verify_url",
	"captcha_timeout":      "captcha.timeout",

	// GeoIP
	"geoip_provider":      "geoip.provider",
	"geoip_url":           "geoip.ipapi_url",
	"geoip_timeout":       "geoip.timeout",
	"maxmind_account_id":  "geoip.maxmind_account_id",
	"maxmind_license_key": "geoip.maxmind_license_key",

	// Place search
	"nominatim_url":          "places.base_url",
	"places_user_agent":      "places.user_agent",
	"places_rate_per_second": "places.rate_per_second",
	"places_timeout":         "places.timeout",

	// Cache
	"redis_url": "cache.redis_url",
	"cache_ttl": "cache.ttl",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf config paths.
//
//   - HTTP_PORT -> server.port
//   - BROADCAST_RATE_LIMIT_PER_24H -> broadcast.daily_limit
//   - TURNSTILE_SECRET_KEY -> captcha.secret_key
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

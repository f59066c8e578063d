// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package config

import "time"

// Database drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// GeoIP providers.
const (
	GeoIPProviderIPAPI   = "ipapi"
	GeoIPProviderMaxMind = "maxmind"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Broadcast BroadcastConfig `koanf:"broadcast"`
	Captcha   CaptchaConfig   `koanf:"captcha"`
	GeoIP     GeoIPConfig     `koanf:"geoip"`
	Places    PlacesConfig    `koanf:"places"`
	Cache     CacheConfig     `koanf:"cache"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig selects and configures the message store.
type DatabaseConfig struct {
	// Driver is duckdb (embedded, single node) or postgres.
	Driver string `koanf:"driver"`

	// Path, MaxMemory and Threads apply to the DuckDB driver.
	// Path ":memory:" keeps everything in process memory.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	// URL is the PostgreSQL connection string (postgres://...).
	URL string `koanf:"url"`

	MaxOpenConns int `koanf:"max_open_conns"`

	// AutoMigrate applies pending schema migrations on startup.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// BroadcastConfig holds the posting policy.
type BroadcastConfig struct {
	// DailyLimit is the number of posts a device may make per rolling 24 hours.
	DailyLimit int `koanf:"daily_limit"`

	// MaintenanceSchedule is a cron expression for resetting expired counters.
	// Empty disables the job.
	MaintenanceSchedule string `koanf:"maintenance_schedule"`
}

// CaptchaConfig configures optional Turnstile verification.
// Verification is skipped entirely when SecretKey is empty.
type CaptchaConfig struct {
	SecretKey string        `koanf:"secret_key"`
	VerifyURL string        `koanf:"verify_url"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Enabled reports whether a captcha secret is configured.
func (c CaptchaConfig) Enabled() bool {
	return c.SecretKey != ""
}

// GeoIPConfig configures IP geolocation lookups.
type GeoIPConfig struct {
	Provider          string        `koanf:"provider"`
	IPAPIURL          string        `koanf:"ipapi_url"`
	MaxMindAccountID  string        `koanf:"maxmind_account_id"`
	MaxMindLicenseKey string        `koanf:"maxmind_license_key"`
	Timeout           time.Duration `koanf:"timeout"`
}

// PlacesConfig configures the place-name search proxy.
type PlacesConfig struct {
	BaseURL       string        `koanf:"base_url"`
	UserAgent     string        `koanf:"user_agent"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Timeout       time.Duration `koanf:"timeout"`
}

// CacheConfig configures the lookup cache shared by geoip and places.
// An empty RedisURL selects the in-process TTL cache.
type CacheConfig struct {
	RedisURL string        `koanf:"redis_url"`
	TTL      time.Duration `koanf:"ttl"`
}

// SecurityConfig holds request-level protections.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

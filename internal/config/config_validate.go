// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = 24 * time.Hour

	maxDailyLimit = 10000
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateBroadcast(); err != nil {
		return err
	}
	if err := c.validateUpstreams(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DATABASE_DRIVER=duckdb")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
		if err := databaseURLRule.check(c.Database.URL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of: %s, %s", DriverDuckDB, DriverPostgres)
	}
	return nil
}

func (c *Config) validateBroadcast() error {
	if c.Broadcast.DailyLimit < 1 || c.Broadcast.DailyLimit > maxDailyLimit {
		return fmt.Errorf("BROADCAST_RATE_LIMIT_PER_24H must be between 1 and %d", maxDailyLimit)
	}
	if c.Broadcast.MaintenanceSchedule != "" {
		if _, err := cron.ParseStandard(c.Broadcast.MaintenanceSchedule); err != nil {
			return fmt.Errorf("BROADCAST_MAINTENANCE_SCHEDULE is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateUpstreams() error {
	switch c.GeoIP.Provider {
	case GeoIPProviderIPAPI:
		if err := geoIPURLRule.check(c.GeoIP.IPAPIURL); err != nil {
			return err
		}
	case GeoIPProviderMaxMind:
		if c.GeoIP.MaxMindAccountID == "" || c.GeoIP.MaxMindLicenseKey == "" {
			return fmt.Errorf("MAXMIND_ACCOUNT_ID and MAXMIND_LICENSE_KEY are required when GEOIP_PROVIDER=maxmind")
		}
	default:
		return fmt.Errorf("GEOIP_PROVIDER must be one of: %s, %s", GeoIPProviderIPAPI, GeoIPProviderMaxMind)
	}

	if err := nominatimRule.check(c.Places.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Places.UserAgent) == "" {
		return fmt.Errorf("PLACES_USER_AGENT is required by the Nominatim usage policy")
	}
	if c.Places.RatePerSecond <= 0 {
		return fmt.Errorf("PLACES_RATE_PER_SECOND must be positive")
	}

	if c.Captcha.Enabled() {
		if err := captchaURLRule.check(c.Captcha.VerifyURL); err != nil {
			return err
		}
	}

	if c.Cache.RedisURL != "" {
		if err := redisURLRule.check(c.Cache.RedisURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateCORS() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must contain at least one origin")
	}
	if c.hasWildcardCORS() && len(c.Security.CORSOrigins) > 1 {
		return fmt.Errorf("CORS_ORIGINS=* cannot be combined with specific origins")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

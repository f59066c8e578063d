// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package config loads application configuration with Koanf v2.
//
// Sources are layered, later sources winning:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/broadcastmap/config.yaml)
//  3. Environment variables, mapped explicitly in envMappings
//
// Outside production, .env.local and .env are read into the process
// environment before step 3. Existing variables are never overwritten.
//
// Commonly used variables:
//
//	HTTP_PORT=3000
//	DATABASE_DRIVER=duckdb            # or postgres
//	DUCKDB_PATH=/data/broadcastmap.duckdb
//	DATABASE_URL=postgres://user:pass@db:5432/broadcastmap?sslmode=disable
//	BROADCAST_RATE_LIMIT_PER_24H=20
//	TURNSTILE_SECRET_KEY=...          # enables captcha verification
//	GEOIP_PROVIDER=ipapi              # or maxmind
//	REDIS_URL=redis://cache:6379/0    # optional shared lookup cache
//	LOG_LEVEL=info
//
// Validate is called by Load; an invalid configuration fails startup with
// an error naming the offending variable.
package config

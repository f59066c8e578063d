// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package main is the entry point for the Broadcastmap server.
//
// Broadcastmap backs an interactive map of short anonymous messages. Devices
// post geotagged broadcasts (at most BROADCAST_RATE_LIMIT_PER_24H per day)
// and map clients read the messages inside their viewport, either by polling
// GET /api/broadcast or by subscribing to the WebSocket feed.
//
// # Startup
//
//  1. Configuration: defaults, config.yaml, then environment (koanf v2)
//  2. Message store: embedded DuckDB or PostgreSQL (DATABASE_DRIVER)
//  3. Lookup cache: Redis when REDIS_URL is set, in-memory otherwise
//  4. Upstream clients: captcha, IP geolocation, place search
//  5. Supervisor tree: WebSocket hub, counter maintenance, HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests for up to 10s, the hub closes client connections and
// the store is closed last.
//
// # Example Usage
//
// Local development with the embedded store:
//
//	export DUCKDB_PATH=./data/broadcastmap.duckdb
//	export LOG_FORMAT=console
//	./broadcastmap
//
// Production with PostgreSQL, Redis and Turnstile:
//
//	export ENVIRONMENT=production
//	export DATABASE_DRIVER=postgres
//	export DATABASE_URL=postgres://broadcast:secret@db:5432/broadcast?sslmode=require
//	export REDIS_URL=redis://cache:6379/0
//	export TURNSTILE_SECRET_KEY=0x4AAAA...
//	export CORS_ORIGINS=https://map.example.org
//	./broadcastmap
package main

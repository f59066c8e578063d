// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package testinfra provides container-backed infrastructure for integration
// tests. Everything here is behind the integration build tag.
//
// # PostgreSQL Container
//
//	func TestRepository(t *testing.T) {
//	    pg := testinfra.StartPostgres(t)
//
//	    repo, err := postgres.New(ctx, &config.DatabaseConfig{
//	        Driver:      config.DriverPostgres,
//	        URL:         pg.URL,
//	        AutoMigrate: true,
//	    })
//	    ...
//	}
//
// Tests are skipped when no container provider is reachable. The first run downloads the
// image; later runs use the local cache.
//
// Run with:
//
//	go test -tags integration ./internal/postgres/...
package testinfra

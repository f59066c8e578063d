// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package backend opens the message store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/database"
	"github.com/tomtom215/broadcastmap/internal/postgres"
	"github.com/tomtom215/broadcastmap/internal/store"
)

// connectTimeout bounds the initial connection and migrations.
const connectTimeout = time.Minute

// Open opens the store selected by DATABASE_DRIVER. An empty driver means
// DuckDB.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		repo, err := postgres.New(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return repo, nil

	case config.DriverDuckDB, "":
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize duckdb store: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

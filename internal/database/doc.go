// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package database is the embedded DuckDB implementation of store.Store.
//
// # Overview
//
// A single DuckDB file holds two tables: anonymous_devices (per-device rate
// limit counters) and broadcast_messages (immutable public posts). The schema
// is created through a small versioned migration list recorded in
// schema_migrations.
//
// # Files
//
//   - database.go: lifecycle (open, pool, initialize, checkpoint on close)
//   - database_connection.go: pool settings, error classification, conflict retry
//   - migrations.go: versioned schema and history
//   - broadcast.go: rate-limit upsert, message insert and bounding-box reads
//   - database_utils.go: context defaults, checkpoint, record counts
//
// # Concurrency
//
// CheckAndIncrement is a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING
// statement. DuckDB's optimistic concurrency control aborts the loser of two
// concurrent updates to the same device row with a transaction conflict; that
// statement never applied, so it is retried (1ms, 2ms, 4ms). No Go-level
// locking is involved.
//
// # Timestamps
//
// All timestamps are stored as TIMESTAMP in UTC and supplied from Go, which
// keeps the ICU extension out of the picture entirely.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	res, err := db.CheckAndIncrement(ctx, deviceHash, ipHash, 20)
package database

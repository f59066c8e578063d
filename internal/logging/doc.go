// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package logging provides centralized zerolog-based structured logging.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Msg("Server starting")
//	ctx = logging.ContextWithDevice(ctx, deviceHash)
//	logging.Ctx(ctx).Info().Msg("Broadcast rate limited")
//
// # Configuration
//
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file and line (default: false)
//
// # Privacy
//
// Device and IP hashes are pseudonymous but still identify a poster across
// requests. Log them through ContextWithDevice or ShortHash, never in full, and never log raw
// IP addresses or device public keys.
//
// # slog bridge
//
// NewSlogLogger returns a *slog.Logger writing through zerolog. The suture
// supervisor tree uses it via sutureslog.
package logging

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package database

import (
	"io"

	"github.com/tomtom215/broadcastmap/internal/logging"
)

// closeWithLog closes c after a successful read path; a failure there is
// worth a warning but never fails the caller.
func closeWithLog(c io.Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.Warn().Err(err).Str("resource", what).Msg("Close failed")
	}
}

// closeQuietly is for error paths that already return a more useful error.
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

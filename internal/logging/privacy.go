// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package logging

import "strings"

// hashPrefixLen is enough to correlate log lines without logging a full identity.
const hashPrefixLen = 12

// ShortHash shortens a device or IP hash for log output.
func ShortHash(hash string) string {
	if len(hash) <= hashPrefixLen {
		return hash
	}
	return hash[:hashPrefixLen] + "…"
}

// SanitizeValue makes an arbitrary user supplied string safe for a single
// log field: control characters are dropped and the result is truncated.
func SanitizeValue(value string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r == '\n' || r == '\r' || r == '\t' || r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return truncateString(b.String(), maxLen)
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	// Back up to a rune boundary.
	cut := maxLen
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package identity derives pseudonymous identifiers. Raw device keys and
// client IP addresses never leave this package unhashed.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// UnknownIP is hashed when no client address header is present.
const UnknownIP = "unknown"

// Client address headers, in precedence order.
const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderRealIP         = "X-Real-IP"
	HeaderCFConnectingIP = "CF-Connecting-IP"
)

// Hash returns the lowercase hex SHA-256 digest of input.
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ClientIP picks the client address from proxy headers: the first
// X-Forwarded-For segment, then X-Real-IP, then CF-Connecting-IP. It returns
// UnknownIP when none is set. The value is not validated as an IP.
func ClientIP(h http.Header) string {
	if xff := h.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := h.Get(HeaderRealIP); ip != "" {
		return ip
	}
	if ip := h.Get(HeaderCFConnectingIP); ip != "" {
		return ip
	}
	return UnknownIP
}

// IPHash returns Hash(ClientIP(h)).
func IPHash(h http.Header) string {
	return Hash(ClientIP(h))
}

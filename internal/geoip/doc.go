// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package geoip resolves a client IP address to an approximate location so the
map can center on the visitor before they pick a point.

Providers:
  - IPAPIProvider: ip-api.com free tier, no key, paced at 45 requests/min
  - MaxMindProvider: GeoLite2 City web service, needs account ID and key

The Resolver short-circuits private and unknown addresses to
"Unknown Location" at 0,0, consults the shared lookup cache, then tries
providers in order. Each provider sits behind its own circuit breaker; a
provider's negative answer (LookupError) does not count against it.
*/
package geoip

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package models defines the data structures shared across Broadcastmap.

Database Models:
  - BroadcastMessage: a public geotagged post (content, coordinates, precision)
  - AnonymousDevice: the pseudonymous poster and its rolling 24h post counter
  - RateLimitResult: outcome of the atomic check-and-increment

API Models:
  - CreateBroadcastRequest / CreateBroadcastResponse
  - ListBroadcastsResponse
  - ErrorResponse: flat {error, message?, details?, remaining?} body
  - Geolocation, PlaceSuggestion, LocationSearchResponse: lookup proxies
  - HealthStatus

JSON field names are part of the public HTTP contract consumed by the map
frontend and must not be renamed.
*/
package models

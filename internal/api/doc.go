// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package api serves the broadcast map's HTTP interface on a chi router.

Endpoints:

	POST /api/broadcast           create a geotagged message
	GET  /api/broadcast           messages inside ?bbox=minLat,maxLat,minLng,maxLng
	GET  /api/broadcast/stream    WebSocket feed of new messages (?bbox= optional)
	GET  /api/geolocation         approximate location of the caller's IP
	GET  /api/location-search     place name suggestions (?q=, ?limit=1..10)
	GET  /health, /health/live, /health/ready
	GET  /metrics                 Prometheus exposition

Every error body is {"error": "..."} with optional "message", "details" and
"remaining" fields. The mapping from domain errors to status codes lives in
response.go:

	*validation.FieldError              400
	*validation.RequestValidationError  400
	*broadcast.CaptchaError             400 with provider error codes
	*broadcast.RateLimitError           429 with remaining: 0
	*broadcast.UpstreamError            500 with details
	anything else                       500 "Internal server error"

Per-IP request limiting (go-chi/httprate) sits in front of the
per-device daily post limit enforced by the broadcast service.
*/
package api

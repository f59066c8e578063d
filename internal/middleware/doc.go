// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package middleware provides the chi middleware shared by every route.

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - AccessLog: one zerolog line per request with status and duration
  - PrometheusMetrics: request count, latency and in-flight gauge, labeled
    by chi route pattern so path parameters do not explode cardinality
  - SecurityHeaders: nosniff, frame denial, referrer policy, HSTS behind TLS

All of them use chi's WrapResponseWriter, which keeps http.Hijacker
available for the WebSocket upgrade.

Typical order:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware

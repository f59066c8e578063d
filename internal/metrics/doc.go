// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package metrics provides Prometheus instrumentation for Broadcastmap.

All collectors are registered with the default registry through promauto and
exposed at GET /metrics.

Every series carries the broadcastmap_ prefix and a subsystem:

  - store_query_duration_seconds{backend,operation}, store_query_errors_total,
    store_transaction_conflicts_total
  - http_requests_total{method,route,status}, http_request_duration_seconds,
    http_in_flight_requests, http_rate_limited_total{path}
  - broadcast_created_total{geo_precision}, broadcast_rejected_total{reason},
    broadcast_query_results{wraps}, broadcast_counters_reset_total
  - upstream_request_duration_seconds{service,outcome}: ip-api, MaxMind,
    Nominatim, Turnstile
  - cache_hits_total{cache}, cache_misses_total{cache}
  - livefeed_connections, livefeed_frames_sent_total,
    livefeed_frames_dropped_total
  - breaker_state{name}, breaker_requests_total{name,result},
    breaker_consecutive_failures{name}, breaker_transitions_total{name,from,to}
  - build_info{version,go_version}

Example queries:

	# Posts rejected by the daily limit over the last hour
	increase(broadcastmap_broadcast_rejected_total{reason="rate_limited"}[1h])

	# p95 bounding-box read latency
	histogram_quantile(0.95, rate(broadcastmap_store_query_duration_seconds_bucket{operation="query_by_bounds"}[5m]))
*/
package metrics

// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every series, e.g. broadcastmap_http_requests_total.
const namespace = "broadcastmap"

func counter(subsystem, name, help string) prometheus.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func gaugeVec(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

// Message store (DuckDB or PostgreSQL).
var (
	DBQueryDuration = histogramVec("store", "query_duration_seconds",
		"Message store statement latency.", prometheus.DefBuckets, "backend", "operation")
	DBQueryErrors = counterVec("store", "query_errors_total",
		"Message store statements that returned an error.", "backend", "operation")
	DBTransactionConflicts = counter("store", "transaction_conflicts_total",
		"DuckDB optimistic transaction conflicts that were retried.")
)

// HTTP API, labeled by chi route pattern.
var (
	APIRequestsTotal = counterVec("http", "requests_total",
		"HTTP requests served.", "method", "route", "status")
	APIRequestDuration = histogramVec("http", "request_duration_seconds",
		"HTTP request latency.", []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}, "method", "route")
	APIActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
		Help: "HTTP requests currently being served.",
	})
	APIRateLimitHits = counterVec("http", "rate_limited_total",
		"Requests rejected by the per-IP request limiter.", "path")
)

// Broadcast pipeline.
var (
	BroadcastsCreated = counterVec("broadcast", "created_total",
		"Broadcast messages accepted.", "geo_precision")
	// reason: validation, captcha, rate_limited, rate_check_failed, insert_failed.
	BroadcastsRejected = counterVec("broadcast", "rejected_total",
		"Broadcast messages rejected.", "reason")
	BroadcastQueryResults = histogramVec("broadcast", "query_results",
		"Messages returned per bounding-box read.", []float64{0, 1, 5, 10, 25, 50, 100, 200, 500}, "wraps")
	RateLimitCountersReset = counter("broadcast", "counters_reset_total",
		"Expired device counters zeroed by maintenance.")
)

// Third-party lookups and their cache.
var (
	UpstreamRequestDuration = histogramVec("upstream", "request_duration_seconds",
		"Latency of geolocation, place search and captcha calls.", prometheus.DefBuckets, "service", "outcome")
	CacheHits   = counterVec("cache", "hits_total", "Lookup cache hits.", "cache")
	CacheMisses = counterVec("cache", "misses_total", "Lookup cache misses.", "cache")
)

// Live feed.
var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "livefeed", Name: "connections",
		Help: "Open live feed WebSocket connections.",
	})
	WSMessagesSent = counter("livefeed", "frames_sent_total",
		"Broadcast frames delivered to subscribers.")
	WSMessagesDropped = counter("livefeed", "frames_dropped_total",
		"Broadcast frames dropped because a subscriber fell behind.")
)

// Circuit breakers around upstream services.
var (
	// 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = gaugeVec("breaker", "state",
		"Circuit breaker state.", "name")
	// result: success, failure, rejected.
	CircuitBreakerRequests = counterVec("breaker", "requests_total",
		"Calls made through a circuit breaker.", "name", "result")
	CircuitBreakerConsecutiveFailures = gaugeVec("breaker", "consecutive_failures",
		"Failures since the last success.", "name")
	CircuitBreakerTransitions = counterVec("breaker", "transitions_total",
		"Circuit breaker state changes.", "name", "from", "to")
)

// AppInfo is always 1; the labels carry the build.
var AppInfo = gaugeVec("", "build_info", "Build information.", "version", "go_version")

// RecordDBQuery records a message store statement.
func RecordDBQuery(backend, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAPIRequest records a served request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

func RecordBroadcastCreated(precision string) {
	BroadcastsCreated.WithLabelValues(precision).Inc()
}

func RecordBroadcastRejected(reason string) {
	BroadcastsRejected.WithLabelValues(reason).Inc()
}

// RecordBroadcastQuery records the size of a bounding-box read.
func RecordBroadcastQuery(wraps bool, results int) {
	BroadcastQueryResults.WithLabelValues(strconv.FormatBool(wraps)).Observe(float64(results))
}

// RecordUpstream records a third-party call as success or error.
func RecordUpstream(service string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}

// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package metrics provides Prometheus instrumentation for production
// observability:
//   - API endpoint latency and throughput
//   - Key validation outcomes
//   - Rate limiter decisions and backend selection
//   - Aggregation cache efficiency
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Key validation metrics. Outcomes: match, no_match, empty,
	// store_error, canceled.
	KeyValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apikey_validations_total",
			Help: "Total number of API key validation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Rate limiter metrics. Backend: redis, local, none (fail-open).
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Total number of rate limit decisions by outcome and backend",
		},
		[]string{"outcome", "backend"},
	)

	RateLimitStoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_store_errors_total",
			Help: "Total number of shared counter store errors",
		},
	)

	// Aggregation cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summary_cache_hits_total",
			Help: "Total number of aggregation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summary_cache_misses_total",
			Help: "Total number of aggregation cache misses",
		},
	)

	CacheWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summary_cache_write_errors_total",
			Help: "Total number of failed aggregation cache writes",
		},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

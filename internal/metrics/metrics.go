// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry through promauto, so
// they exist as soon as the package is imported. Components record through
// the Record* helpers rather than touching the vectors directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelfeed_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelfeed_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Cache Metrics, labelled by cache instance ("movies", "videos")
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_cache_evictions_total",
			Help: "Total number of entries evicted at capacity",
		},
		[]string{"cache"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelfeed_cache_entries",
			Help: "Current number of entries held",
		},
		[]string{"cache"},
	)

	// Metadata Provider Metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_provider_requests_total",
			Help: "Total number of metadata provider requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, unauthorized, request_failed, network
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelfeed_provider_request_duration_seconds",
			Help:    "Metadata provider request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ProviderSoftFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_provider_soft_failures_total",
			Help: "Provider failures absorbed and replaced with a degraded result",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelfeed_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Feed Metrics
	FeedBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_batches_total",
			Help: "Total number of feed batches assembled",
		},
		[]string{"source", "result"}, // result: ok, empty, error, superseded
	)

	FeedBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelfeed_feed_batch_size",
			Help:    "Number of movies returned per batch",
			Buckets: []float64{0, 1, 5, 10, 15, 20, 30, 50},
		},
	)

	FeedAssemblyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelfeed_feed_assembly_duration_seconds",
			Help:    "Time spent assembling one feed batch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	FeedEnrichmentFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_enrichment_failures_total",
			Help: "Per-item enrichment failures substituted with the unenriched record",
		},
	)

	FeedRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_refreshes_total",
			Help: "Total number of explicit feed refreshes",
		},
	)

	// Preference Store Metrics
	PreferenceWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_preference_write_failures_total",
			Help: "Preference writes dropped because the backend failed",
		},
		[]string{"key"},
	)

	// Domain Event Metrics
	ActivityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_activity_events_total",
			Help: "Domain events observed by the activity recorder",
		},
		[]string{"topic"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_event_publish_failures_total",
			Help: "Domain events that could not be published",
		},
		[]string{"topic"},
	)

	// Store Metrics
	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_store_gc_runs_total",
			Help: "Badger value log GC runs",
		},
		[]string{"result"}, // result: rewritten, noop, error
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordProviderRequest records one provider round trip.
func RecordProviderRequest(endpoint, outcome string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSoftFailure counts a provider failure that was absorbed.
func RecordSoftFailure(operation string) {
	ProviderSoftFailures.WithLabelValues(operation).Inc()
}

// RecordFeedBatch records the outcome of one NextBatch call.
func RecordFeedBatch(source, result string, size int, duration time.Duration) {
	FeedBatchesTotal.WithLabelValues(source, result).Inc()
	FeedAssemblyDuration.Observe(duration.Seconds())
	if result == "ok" || result == "empty" {
		FeedBatchSize.Observe(float64(size))
	}
}

// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package metrics provides Prometheus instrumentation for Streamgate:
// HTTP request latency and throughput, resolver call outcomes, relayed
// stream volume, and circuit breaker state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgate_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamgate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamgate_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Resolver Metrics
	ResolverRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgate_resolver_requests_total",
			Help: "Total number of media resolver operations",
		},
		[]string{"operation", "status"}, // operation: metadata|stream, status: success|error
	)

	ResolverDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "streamgate_resolver_duration_seconds",
			Help: "Duration of media resolver operations in seconds",
			// Resolver calls reach an external service and can take seconds.
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	// Stream Relay Metrics
	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgate_stream_bytes_total",
			Help: "Total bytes relayed to clients",
		},
		[]string{"kind"}, // audio, video
	)

	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamgate_streams_active",
			Help: "Current number of in-flight media relays",
		},
	)

	StreamFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgate_stream_failures_total",
			Help: "Total number of relay failures",
		},
		[]string{"stage"}, // resolve, stream, client_disconnect
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamgate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgate_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordAPIRequest records metrics for a completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordResolverRequest records the outcome of a resolver operation.
func RecordResolverRequest(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ResolverRequestsTotal.WithLabelValues(operation, status).Inc()
	ResolverDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStreamBytes adds relayed bytes for the given media kind.
func RecordStreamBytes(kind string, n int64) {
	if n > 0 {
		StreamBytesTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordStreamFailure counts a relay failure at the given stage.
func RecordStreamFailure(stage string) {
	StreamFailuresTotal.WithLabelValues(stage).Inc()
}

// TrackActiveStream increments or decrements the in-flight relay gauge.
func TrackActiveStream(inc bool) {
	if inc {
		StreamsActive.Inc()
	} else {
		StreamsActive.Dec()
	}
}

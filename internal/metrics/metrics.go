// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the console's Prometheus collectors. All metrics
// are registered on the default registry via promauto and exposed on
// /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency by method, route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPActiveRequests tracks in-flight HTTP requests.
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// ProxyRequestsTotal counts proxied requests by route prefix and status.
	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_proxy_requests_total",
			Help: "Total requests forwarded to upstream APIs",
		},
		[]string{"route", "status"},
	)

	// ProxyRejectedTotal counts admin-route requests rejected before any
	// upstream dial because the session carried no access token.
	ProxyRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_proxy_rejected_total",
			Help: "Requests rejected at the proxy for missing credentials",
		},
		[]string{"route"},
	)

	// ProxyUpstreamErrorsTotal counts transport failures reaching upstreams.
	ProxyUpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_proxy_upstream_errors_total",
			Help: "Transport errors while forwarding to upstream APIs",
		},
		[]string{"route"},
	)

	// OAuthLoginsTotal counts login attempts by outcome
	// (success, denied, error).
	OAuthLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_oauth_logins_total",
			Help: "OAuth login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState reports breaker state (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "console_circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=half-open, 2=open",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// CircuitBreakerRequests counts breaker-mediated requests by result
	// (success, failure, rejected).
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"},
	)
)

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordProxyRequest records a completed proxied request.
func RecordProxyRequest(route, status string) {
	ProxyRequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordLogin records a login attempt outcome.
func RecordLogin(outcome string) {
	OAuthLoginsTotal.WithLabelValues(outcome).Inc()
}

// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the realmd service.
//
// Two metric families exist: the continuity pipeline (checks, extractions,
// alerts, cache behavior) and streaming chat (active streams, tokens,
// disconnects). Metrics are exposed on /metrics for Prometheus scraping.
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "realmsync"

const (
	checksSubsystem    = "checks"
	streamingSubsystem = "streaming"
)

// Metrics holds all Prometheus metrics for the realmd service. Initialize
// once at startup via InitMetrics.
type Metrics struct {
	// ChecksTotal counts continuity check runs.
	// Labels: kind (check, extract), status (success, error, cached)
	ChecksTotal *prometheus.CounterVec

	// CheckDurationSeconds measures pipeline latency per kind.
	CheckDurationSeconds *prometheus.HistogramVec

	// AlertsCreatedTotal counts alerts created, by type.
	AlertsCreatedTotal *prometheus.CounterVec

	// AlertTransitionsTotal counts lifecycle transitions.
	// Labels: to (open, resolved, dismissed)
	AlertTransitionsTotal *prometheus.CounterVec

	// CacheEventsTotal counts model-result cache behavior.
	// Labels: kind (check, extract), event (hit, miss)
	CacheEventsTotal *prometheus.CounterVec

	// RequestsTotal counts streaming chat requests.
	// Labels: status (success, error)
	RequestsTotal *prometheus.CounterVec

	// TokensTotal counts streamed tokens, by model.
	TokensTotal *prometheus.CounterVec

	// ActiveStreams tracks currently open chat streams.
	ActiveStreams prometheus.Gauge

	// ClientDisconnectsTotal counts clients that dropped mid-stream.
	ClientDisconnectsTotal prometheus.Counter
}

// Error codes used as metric label values and in error responses.
const (
	ErrorCodeValidation = "validation"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeLLMError   = "llm_error"
	ErrorCodeTimeout    = "timeout"
	ErrorCodeUsageLimit = "usage_limit"
	ErrorCodeInternal   = "internal"
)

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *Metrics

// InitMetrics creates and registers all metrics on the default registry.
// Call once at startup; a second call panics on duplicate registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		ChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: checksSubsystem,
				Name:      "runs_total",
				Help:      "Continuity pipeline runs by kind and status",
			},
			[]string{"kind", "status"},
		),

		CheckDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: checksSubsystem,
				Name:      "duration_seconds",
				Help:      "Continuity pipeline latency in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),

		AlertsCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: checksSubsystem,
				Name:      "alerts_created_total",
				Help:      "Alerts created by alert type",
			},
			[]string{"type"},
		),

		AlertTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: checksSubsystem,
				Name:      "alert_transitions_total",
				Help:      "Alert lifecycle transitions by target state",
			},
			[]string{"to"},
		),

		CacheEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: checksSubsystem,
				Name:      "cache_events_total",
				Help:      "Model result cache hits and misses",
			},
			[]string{"kind", "event"},
		),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "requests_total",
				Help:      "Streaming chat requests by status",
			},
			[]string{"status"},
		),

		TokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "tokens_total",
				Help:      "Streamed tokens by model",
			},
			[]string{"model"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "active_streams",
				Help:      "Currently open chat streams",
			},
		),

		ClientDisconnectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Clients that dropped mid-stream",
			},
		),
	}
	return DefaultMetrics
}

// ObserveCheck records one pipeline run on the default metrics, if
// initialized.
func ObserveCheck(kind, status string, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ChecksTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.CheckDurationSeconds.WithLabelValues(kind).Observe(seconds)
}

// ObserveCacheEvent records a cache hit or miss, if initialized.
func ObserveCacheEvent(kind, event string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CacheEventsTotal.WithLabelValues(kind, event).Inc()
}

// ObserveAlertTransition records a lifecycle transition, if initialized.
func ObserveAlertTransition(to string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.AlertTransitionsTotal.WithLabelValues(to).Inc()
}

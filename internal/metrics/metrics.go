// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline record counters, labelled by source.
	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_records_fetched_total",
			Help: "Raw records returned by source fetchers",
		},
		[]string{"source"},
	)

	RecordsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_records_parsed_total",
			Help: "Records mapped into valid permits",
		},
		[]string{"source"},
	)

	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_records_dropped_total",
			Help: "Records dropped as invalid during mapping",
		},
		[]string{"source"},
	)

	RecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_records_upserted_total",
			Help: "Rows affected by permit upserts",
		},
		[]string{"source"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"source", "status"}, // status: success, partial, error
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadledger_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"source"},
	)

	RunLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leadledger_run_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		},
		[]string{"source"},
	)

	// Upsert batches
	UpsertBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadledger_upsert_batch_duration_seconds",
			Help:    "Duration of one upsert batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	UpsertBatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_upsert_batch_errors_total",
			Help: "Upsert batches that failed",
		},
		[]string{"sink"},
	)

	// Fetch requests
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_fetch_requests_total",
			Help: "HTTP requests made to permit sources",
		},
		[]string{"source", "code"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadledger_fetch_request_duration_seconds",
			Help:    "Duration of HTTP requests to permit sources",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	AuditFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadledger_audit_failures_total",
			Help: "Audit rows that could not be written",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadledger_api_requests_total",
			Help: "HTTP API requests served",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadledger_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RunCounts carries the per-run numbers RecordRun exports.
type RunCounts struct {
	Fetched  int
	Parsed   int
	Dropped  int
	Upserted int64
}

// RecordRun records the outcome of one pipeline run.
func RecordRun(source, status string, duration time.Duration, c RunCounts) {
	RecordsFetched.WithLabelValues(source).Add(float64(c.Fetched))
	RecordsParsed.WithLabelValues(source).Add(float64(c.Parsed))
	RecordsDropped.WithLabelValues(source).Add(float64(c.Dropped))
	RecordsUpserted.WithLabelValues(source).Add(float64(c.Upserted))
	RunsTotal.WithLabelValues(source, status).Inc()
	RunDuration.WithLabelValues(source).Observe(duration.Seconds())
	if status != "error" {
		RunLastSuccess.WithLabelValues(source).Set(float64(time.Now().Unix()))
	}
}

// RecordUpsertBatch records one upsert batch.
func RecordUpsertBatch(sink string, duration time.Duration, err error) {
	UpsertBatchDuration.WithLabelValues(sink).Observe(duration.Seconds())
	if err != nil {
		UpsertBatchErrors.WithLabelValues(sink).Inc()
	}
}

// RecordFetchRequest records one outbound request. code is the HTTP status
// or "error" when no response was received.
func RecordFetchRequest(source, code string, duration time.Duration) {
	FetchRequests.WithLabelValues(source, code).Inc()
	FetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

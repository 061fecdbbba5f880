// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package metrics provides Prometheus instrumentation for the event
// pipeline: consumer throughput, retry/DLQ activity, counter flushes and
// the trending read path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Consumer metrics
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampulse_events_consumed_total",
			Help: "Total messages fetched from the broker, by topic and outcome",
		},
		[]string{"topic", "outcome"}, // "ok", "dead_lettered"
	)

	EventProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streampulse_event_processing_duration_seconds",
			Help:    "Per-message handler duration including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"topic"},
	)

	HandlerRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampulse_handler_retries_total",
			Help: "Total handler retry attempts, by topic",
		},
		[]string{"topic"},
	)

	// DLQ metrics
	DLQMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampulse_dlq_messages_total",
			Help: "Messages written to dead-letter topics, by original topic and reason",
		},
		[]string{"topic", "reason"}, // "parse_error", "retries_exhausted"
	)

	DLQWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampulse_dlq_write_failures_total",
			Help: "DLQ publish failures (logged and dropped, never retried)",
		},
		[]string{"topic"},
	)

	// Counter aggregator metrics
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streampulse_counter_flush_duration_seconds",
			Help:    "Duration of counter window flushes",
			Buckets: prometheus.DefBuckets,
		},
	)

	FlushedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampulse_counter_flushed_keys_total",
			Help: "Counter keys written during flushes",
		},
	)

	FlushEntityErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampulse_counter_flush_entity_errors_total",
			Help: "Per-entity durable write failures during flushes",
		},
	)

	PendingCounters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streampulse_counter_window_size",
			Help: "Counter keys currently buffered in the aggregation window",
		},
	)

	// Trending metrics
	TrendingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampulse_trending_cache_hits_total",
			Help: "Trending id list cache hits",
		},
	)

	TrendingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampulse_trending_cache_misses_total",
			Help: "Trending id list cache misses",
		},
	)

	TrendingFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampulse_trending_fallbacks_total",
			Help: "Trending feed requests served from the durable-store fallback",
		},
	)

	// Durable store metrics
	StoreWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streampulse_store_write_duration_seconds",
			Help:    "Durable store write duration, by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampulse_store_write_errors_total",
			Help: "Durable store write errors, by operation",
		},
		[]string{"operation"},
	)
)

// RecordMessage records a consumed message and its outcome.
func RecordMessage(topic, outcome string, duration time.Duration) {
	EventsConsumed.WithLabelValues(topic, outcome).Inc()
	EventProcessingDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordStoreWrite records a durable store write and its error, if any.
func RecordStoreWrite(operation string, duration time.Duration, err error) {
	StoreWriteDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreWriteErrors.WithLabelValues(operation).Inc()
	}
}

// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package counters buffers per-key counter deltas in memory, mirrors
// them synchronously into the distributed store, and periodically
// flushes the accumulated window into durable storage.
package counters

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/streampulse/streampulse/internal/logging"
	"github.com/streampulse/streampulse/internal/metrics"
)

// VideoStatsDelta is the per-video slice of a flush window, grouped from
// the recognized counter keys.
type VideoStatsDelta struct {
	Views    int64
	Likes    int64
	Dislikes int64
	Comments int64
	Shares   int64
}

// DurableStore is the slice of the storage layer the flush path needs.
type DurableStore interface {
	// UpsertVideoStats creates the aggregate row (clamping initial
	// values at zero) or increments existing columns by the signed
	// deltas.
	UpsertVideoStats(ctx context.Context, videoID string, delta VideoStatsDelta) error

	// SyncVideoCounters increments the denormalized counter columns on
	// the video record itself so simple reads avoid a join.
	SyncVideoCounters(ctx context.Context, videoID string, viewsDelta, likesDelta int64) error
}

// Aggregator owns the in-memory delta window between two flushes. Every
// increment is also mirrored synchronously into the distributed store,
// so the window only exists to batch durable writes.
//
// Multiple processes may each run an aggregator; durable writes are
// expressed as increments, never absolute sets, so concurrent flushers
// commute. No lock is taken around flush across processes.
type Aggregator struct {
	dist     DistributedStore
	durable  DurableStore
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	counters map[string]int64
}

// NewAggregator creates an aggregator flushing every interval.
func NewAggregator(dist DistributedStore, durable DurableStore, interval time.Duration) *Aggregator {
	return &Aggregator{
		dist:     dist,
		durable:  durable,
		interval: interval,
		log:      logging.With().Str("component", "aggregator").Logger(),
		counters: make(map[string]int64),
	}
}

// Increment adds amount to the in-memory delta for key and mirrors the
// increment into the live distributed hash so other processes see it
// without waiting for a flush.
func (a *Aggregator) Increment(ctx context.Context, key string, amount int64) error {
	a.mu.Lock()
	a.counters[key] += amount
	size := len(a.counters)
	a.mu.Unlock()

	metrics.PendingCounters.Set(float64(size))
	return a.dist.MirrorIncrement(ctx, key, amount)
}

// Pending reads the buffered delta for key. Zero for unknown keys.
func (a *Aggregator) Pending(key string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters[key]
}

// String identifies the aggregator in supervisor logs.
func (a *Aggregator) String() string {
	return "counter-aggregator"
}

// Serve runs the flush timer until the context is canceled, then
// performs one final flush before returning. The final flush uses a
// fresh context so an in-flight flush completes instead of being
// cancelled into partial durable writes.
func (a *Aggregator) Serve(ctx context.Context) error {
	a.log.Info().Dur("interval", a.interval).Msg("counter aggregator started")
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.log.Error().Err(err).Msg("flush failed; window retained for next tick")
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.Flush(flushCtx); err != nil {
				a.log.Error().Err(err).Msg("final flush failed")
			}
			a.log.Info().Msg("counter aggregator stopped")
			return ctx.Err()
		}
	}
}

// Flush reconciles the window into durable storage:
//
//  1. mirror all deltas into the persistent distributed hash
//  2. group deltas by video id, summing recognized metrics
//  3. upsert one aggregate row per video, collecting failures per
//     entity rather than aborting the batch
//  4. sync denormalized view/like columns where those deltas are
//     non-zero
//  5. clear the window
//
// A failure in step 1 retains the window; the next tick retries it
// merged with newer deltas. Per-entity failures in steps 3-4 drop that
// entity's deltas for this cycle only: the synchronously updated live
// hash stays correct, so the durable aggregate undercounts at most
// until an operator replays the persistent hash.
func (a *Aggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.counters) == 0 {
		a.mu.Unlock()
		return nil
	}
	window := a.counters
	a.counters = make(map[string]int64)
	a.mu.Unlock()

	start := time.Now()
	a.log.Info().Int("keys", len(window)).Msg("flushing counters to storage")

	if err := a.dist.PersistDeltas(ctx, window); err != nil {
		// Merge the window back so the next tick retries these deltas.
		a.mu.Lock()
		for key, delta := range window {
			a.counters[key] += delta
		}
		a.mu.Unlock()
		return err
	}

	perVideo := groupByVideo(window)
	failed := 0
	for videoID, delta := range perVideo {
		if err := a.durable.UpsertVideoStats(ctx, videoID, delta); err != nil {
			failed++
			metrics.FlushEntityErrors.Inc()
			a.log.Error().Str("video_id", videoID).Err(err).Msg("durable upsert failed; deltas dropped this cycle")
			continue
		}
		if delta.Views != 0 || delta.Likes != 0 {
			if err := a.durable.SyncVideoCounters(ctx, videoID, delta.Views, delta.Likes); err != nil {
				// Video may have been deleted; denormalized columns are
				// best-effort.
				a.log.Warn().Str("video_id", videoID).Err(err).Msg("denormalized counter sync failed")
			}
		}
	}

	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	metrics.FlushedKeys.Add(float64(len(window)))
	metrics.PendingCounters.Set(float64(len(a.snapshotKeys())))

	a.log.Info().
		Int("keys", len(window)).
		Int("videos", len(perVideo)).
		Int("failed_videos", failed).
		Dur("took", time.Since(start)).
		Msg("flushed counters")
	return nil
}

func (a *Aggregator) snapshotKeys() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int64, len(a.counters))
	for k, v := range a.counters {
		out[k] = v
	}
	return out
}

// groupByVideo folds recognized "video:<id>:<metric>" keys into
// per-video deltas. Foreign and day-bucketed keys stay distributed-only
// and are skipped.
func groupByVideo(window map[string]int64) map[string]VideoStatsDelta {
	out := make(map[string]VideoStatsDelta)
	for key, delta := range window {
		videoID, metric, ok := splitVideoMetric(key)
		if !ok {
			continue
		}
		d := out[videoID]
		switch metric {
		case MetricViews:
			d.Views += delta
		case MetricLikes:
			d.Likes += delta
		case MetricDislikes:
			d.Dislikes += delta
		case MetricComments:
			d.Comments += delta
		case MetricShares:
			d.Shares += delta
		}
		out[videoID] = d
	}
	return out
}

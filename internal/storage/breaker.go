// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package storage

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/logging"
)

// writer is the durable write surface guarded by the breaker.
type writer interface {
	counters.DurableStore
	IncrementChannelSubscribers(ctx context.Context, channelID string, delta int64) error
}

// BreakerStore wraps the durable write path in a circuit breaker. When
// Postgres is down, a flush of thousands of entities fails fast instead
// of serializing connection timeouts; the per-entity failure handling
// upstream already treats each write as independently fallible.
type BreakerStore struct {
	inner   writer
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerStore guards the store's writes. The breaker opens after
// five consecutive failures and probes again after 30 seconds.
func NewBreakerStore(inner writer) *BreakerStore {
	log := logging.With().Str("component", "store-breaker").Logger()
	settings := gobreaker.Settings{
		Name:        "durable-store",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &BreakerStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *BreakerStore) execute(op func() error) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

func (b *BreakerStore) UpsertVideoStats(ctx context.Context, videoID string, d counters.VideoStatsDelta) error {
	return b.execute(func() error {
		return b.inner.UpsertVideoStats(ctx, videoID, d)
	})
}

func (b *BreakerStore) SyncVideoCounters(ctx context.Context, videoID string, viewsDelta, likesDelta int64) error {
	return b.execute(func() error {
		return b.inner.SyncVideoCounters(ctx, videoID, viewsDelta, likesDelta)
	})
}

func (b *BreakerStore) IncrementChannelSubscribers(ctx context.Context, channelID string, delta int64) error {
	return b.execute(func() error {
		return b.inner.IncrementChannelSubscribers(ctx, channelID, delta)
	})
}

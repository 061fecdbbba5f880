// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package consumers

import (
	"context"
	"fmt"
	"time"

	"github.com/streampulse/streampulse/internal/broker"
	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/events"
)

// ViewHandler processes video.view events: durable-eligible view
// counter, day-bucketed counter, watch history, cache invalidation and
// the trending view signal. Unrecognized event types are a no-op.
func ViewHandler(deps Deps) broker.Handler {
	return func(ctx context.Context, e *events.Event) error {
		if e.Type != events.VideoView {
			return nil
		}
		if e.VideoID == "" {
			return fmt.Errorf("view event missing videoId")
		}

		// In-memory window plus live distributed hash.
		if err := deps.Aggregator.Increment(ctx, counters.VideoKey(e.VideoID, counters.MetricViews), 1); err != nil {
			return err
		}

		// Standalone counter for real-time display.
		if _, err := deps.Dist.IncrementCounter(ctx, counters.VideoKey(e.VideoID, counters.MetricViews), 1); err != nil {
			return err
		}

		// Day-bucketed views (distributed-only).
		if _, err := deps.Dist.IncrementCounter(ctx, counters.DailyVideoViewsKey(e.VideoID, time.Now()), 1); err != nil {
			return err
		}

		if err := deps.Dist.CacheDelete(ctx, counters.VideoCacheKey(e.VideoID)); err != nil {
			return err
		}

		if e.UserID != "" {
			if _, err := deps.Dist.IncrementCounter(ctx, counters.UserKey(e.UserID, "watched"), 1); err != nil {
				return err
			}
		}

		return deps.Trending.RecordView(ctx, e.VideoID, e.Duration)
	}
}

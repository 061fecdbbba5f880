// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package consumers

import (
	"context"
	"fmt"

	"github.com/streampulse/streampulse/internal/broker"
	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/events"
	"github.com/streampulse/streampulse/internal/trending"
)

// LikeHandler processes video.like, video.unlike and video.dislike
// events. Likes feed the trending score; unlikes and dislikes only
// adjust counters.
func LikeHandler(deps Deps) broker.Handler {
	return func(ctx context.Context, e *events.Event) error {
		var metric string
		var delta int64
		switch e.Type {
		case events.VideoLike:
			metric, delta = counters.MetricLikes, 1
		case events.VideoUnlike:
			metric, delta = counters.MetricLikes, -1
		case events.VideoDislike:
			metric, delta = counters.MetricDislikes, 1
		default:
			return nil
		}
		if e.VideoID == "" {
			return fmt.Errorf("%s event missing videoId", e.Type)
		}

		key := counters.VideoKey(e.VideoID, metric)
		if err := deps.Aggregator.Increment(ctx, key, delta); err != nil {
			return err
		}
		if _, err := deps.Dist.IncrementCounter(ctx, key, delta); err != nil {
			return err
		}
		if err := deps.Dist.CacheDelete(ctx, counters.VideoCacheKey(e.VideoID)); err != nil {
			return err
		}

		// Recommendation signal.
		if e.UserID != "" {
			if _, err := deps.Dist.IncrementCounter(ctx, counters.UserLikedSignalKey(e.UserID), 1); err != nil {
				return err
			}
		}

		if e.Type == events.VideoLike {
			return deps.Trending.RecordEngagement(ctx, e.VideoID, trending.EngagementLike)
		}
		return nil
	}
}

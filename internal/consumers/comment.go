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

// CommentHandler processes comment.create, comment.like and
// comment.delete events. Comment likes are distributed-only and never
// reach the durable aggregate.
func CommentHandler(deps Deps) broker.Handler {
	return func(ctx context.Context, e *events.Event) error {
		switch e.Type {
		case events.CommentCreate:
			if e.VideoID == "" {
				return fmt.Errorf("comment.create event missing videoId")
			}
			key := counters.VideoKey(e.VideoID, counters.MetricComments)
			if err := deps.Aggregator.Increment(ctx, key, 1); err != nil {
				return err
			}
			if _, err := deps.Dist.IncrementCounter(ctx, key, 1); err != nil {
				return err
			}
			if err := deps.Dist.CacheDelete(ctx,
				counters.VideoCacheKey(e.VideoID),
				counters.VideoCommentsCacheKey(e.VideoID),
			); err != nil {
				return err
			}
			if e.UserID != "" {
				if _, err := deps.Dist.IncrementCounter(ctx, counters.UserKey(e.UserID, "comments"), 1); err != nil {
					return err
				}
			}
			return deps.Trending.RecordEngagement(ctx, e.VideoID, trending.EngagementComment)

		case events.CommentDelete:
			if e.VideoID == "" {
				return fmt.Errorf("comment.delete event missing videoId")
			}
			key := counters.VideoKey(e.VideoID, counters.MetricComments)
			if err := deps.Aggregator.Increment(ctx, key, -1); err != nil {
				return err
			}
			if _, err := deps.Dist.IncrementCounter(ctx, key, -1); err != nil {
				return err
			}
			return deps.Dist.CacheDelete(ctx, counters.VideoCommentsCacheKey(e.VideoID))

		case events.CommentLike:
			if e.CommentID == "" {
				return fmt.Errorf("comment.like event missing commentId")
			}
			_, err := deps.Dist.IncrementCounter(ctx, counters.CommentLikesKey(e.CommentID), 1)
			return err

		default:
			return nil
		}
	}
}

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
)

// SubscriptionHandler processes channel subscription events.
// Subscriptions are low-volume, so the durable subscriber count is
// written through immediately rather than batched through the
// aggregation window.
func SubscriptionHandler(deps Deps) broker.Handler {
	return func(ctx context.Context, e *events.Event) error {
		var delta int64
		switch e.Type {
		case events.SubscriptionCreate:
			delta = 1
		case events.SubscriptionDelete:
			delta = -1
		default:
			return nil
		}
		if e.ChannelID == "" {
			return fmt.Errorf("%s event missing channelId", e.Type)
		}

		if _, err := deps.Dist.IncrementCounter(ctx, counters.ChannelSubscribersKey(e.ChannelID), delta); err != nil {
			return err
		}
		if err := deps.Channels.IncrementChannelSubscribers(ctx, e.ChannelID, delta); err != nil {
			return err
		}
		if err := deps.Dist.CacheDelete(ctx, counters.ChannelCacheKey(e.ChannelID)); err != nil {
			return err
		}

		if e.UserID != "" {
			if _, err := deps.Dist.IncrementCounter(ctx, counters.UserKey(e.UserID, "subscriptions"), delta); err != nil {
				return err
			}
		}
		return nil
	}
}

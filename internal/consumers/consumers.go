// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package consumers maps domain events to counter mutations, cache
// invalidations and trending signals. One consumer per event category,
// each with its own consumer-group identity so they scale and restart
// independently.
package consumers

import (
	"context"

	"github.com/streampulse/streampulse/internal/broker"
	"github.com/streampulse/streampulse/internal/config"
	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/trending"
)

// ChannelStore is the write-through durable surface for subscription
// events, which skip the batched aggregation window.
type ChannelStore interface {
	IncrementChannelSubscribers(ctx context.Context, channelID string, delta int64) error
}

// Deps carries the shared collaborators injected into every handler.
type Deps struct {
	Aggregator *counters.Aggregator
	Dist       counters.DistributedStore
	Trending   *trending.Engine
	Channels   ChannelStore
}

// Build wires the four domain consumers against the configured topics.
// Consumer group names follow the original processors; the configured
// prefix namespaces them per deployment.
func Build(cfg *config.KafkaConfig, dlq *broker.DeadLetterer, deps Deps) []*broker.Consumer {
	build := func(name, topic string, handler broker.Handler) *broker.Consumer {
		group := cfg.ConsumerGroup(name)
		return broker.NewConsumer(name, topic, broker.NewReader(cfg, topic, group), dlq, handler)
	}

	return []*broker.Consumer{
		build("view-processor", cfg.Topics.Views, ViewHandler(deps)),
		build("like-processor", cfg.Topics.Likes, LikeHandler(deps)),
		build("comment-processor", cfg.Topics.Comments, CommentHandler(deps)),
		build("subscription-processor", cfg.Topics.Subscriptions, SubscriptionHandler(deps)),
	}
}

// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher publishes raw messages to a topic. The pipeline only
// publishes dead letters, but the interface is message-agnostic so tests
// can capture writes.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// KafkaPublisher publishes via a shared kafka.Writer. The writer carries
// no fixed topic; each message names its own.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers. clientID
// identifies this process to the broker for quotas and request logs.
func NewKafkaPublisher(brokers []string, clientID string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			Transport:              &kafka.Transport{ClientID: clientID},
		},
	}
}

// Publish writes a single message to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

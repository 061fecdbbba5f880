// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package broker adapts Kafka consumption and publishing for the event
// pipeline: consumer-group readers with per-message offset commits, and
// a bounded-retry dead-letter wrapper shared by all domain consumers.
package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/streampulse/streampulse/internal/config"
	"github.com/streampulse/streampulse/internal/logging"
)

// Fetcher is the slice of kafka.Reader the consumer loop needs.
// FetchMessage must not auto-commit; offsets are resolved explicitly.
type Fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// fetchErrorDelay throttles the loop when the broker is unreachable.
// Reconnection itself is the reader's job; we just avoid spinning.
const fetchErrorDelay = time.Second

// Consumer pulls messages from one topic under one consumer group and
// drives each through the dead-letter wrapper before committing its
// offset. Messages are processed strictly sequentially: per-message
// commit bounds worst-case redelivery after a crash to a single message.
//
// Consumer implements suture.Service; the supervisor restarts it
// independently of the other domain consumers.
type Consumer struct {
	name    string
	topic   string
	reader  Fetcher
	dlq     *DeadLetterer
	handler Handler
	log     zerolog.Logger
}

// NewConsumer wires a consumer from an already-configured reader.
func NewConsumer(name, topic string, reader Fetcher, dlq *DeadLetterer, handler Handler) *Consumer {
	return &Consumer{
		name:    name,
		topic:   topic,
		reader:  reader,
		dlq:     dlq,
		handler: handler,
		log:     logging.With().Str("component", name).Str("topic", topic).Logger(),
	}
}

// NewReader builds a consumer-group kafka.Reader for the topic.
// CommitInterval zero makes CommitMessages synchronous, which the
// at-least-once contract depends on. Heartbeats run on the reader's
// session goroutine at HeartbeatInterval, keeping group membership
// alive through slow batches.
func NewReader(cfg *config.KafkaConfig, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   topic,
		GroupID: group,
		Dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
		MinBytes:          cfg.MinBytes,
		MaxBytes:          cfg.MaxBytes,
		MaxWait:           cfg.MaxWait,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		CommitInterval:    0, // synchronous commits
		StartOffset:       kafka.LastOffset,
	})
}

// String identifies the consumer in supervisor logs.
func (c *Consumer) String() string {
	return c.name
}

// Serve runs the fetch-process-commit loop until the context is
// canceled. A message is committed after the dead-letter wrapper
// returns, whether the handler succeeded or the message was
// dead-lettered; a crash between effect and commit yields redelivery
// (at-least-once).
func (c *Consumer) Serve(ctx context.Context) error {
	c.log.Info().Msg("consumer started")
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Error().Err(err).Msg("reader close failed")
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("consumer stopping")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("reader closed: %w", err)
			}
			c.log.Error().Err(err).Msg("fetch message failed")
			sleepContext(ctx, fetchErrorDelay)
			continue
		}

		if err := c.dlq.Process(ctx, Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
		}, c.handler); err != nil {
			// Only context cancellation reaches here; the offset stays
			// uncommitted so the message is redelivered.
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Err(err).
				Msg("offset commit failed")
		}
	}
}

// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/streampulse/streampulse/internal/events"
	"github.com/streampulse/streampulse/internal/logging"
	"github.com/streampulse/streampulse/internal/metrics"
)

// MaxRetries is the retry budget for a failing handler before the
// message is dead-lettered.
const MaxRetries = 3

// retryBaseDelay seeds the exponential backoff: 200ms, 400ms, 800ms.
const retryBaseDelay = 200 * time.Millisecond

// DLQSuffix derives dead-letter topic names from their original topic.
const DLQSuffix = ".dlq"

// Envelope wraps a failed message for the dead-letter topic. Envelopes
// are never mutated after publishing; replay tooling consumes them.
type Envelope struct {
	OriginalTopic     string    `json:"originalTopic"`
	OriginalPartition int       `json:"originalPartition"`
	OriginalOffset    int64     `json:"originalOffset"`
	Error             string    `json:"error"`
	RetryCount        int       `json:"retryCount"`
	FailedAt          time.Time `json:"failedAt"`
	Payload           string    `json:"payload"` // raw message value
}

// Message describes a fetched broker message by wire identity plus body.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Handler processes a decoded event. A nil return acknowledges the
// event; an error triggers the retry schedule.
type Handler func(ctx context.Context, e *events.Event) error

// DeadLetterer wraps per-message handlers with bounded retry and
// dead-letter publishing. It is shared by all domain consumers.
type DeadLetterer struct {
	publisher Publisher
	log       zerolog.Logger

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration)
}

// NewDeadLetterer creates a retry/DLQ wrapper publishing through p.
func NewDeadLetterer(p Publisher) *DeadLetterer {
	return &DeadLetterer{
		publisher: p,
		log:       logging.With().Str("component", "dlq").Logger(),
		sleep:     sleepContext,
	}
}

// Process drives one message through parse, handler, retry and DLQ
// stages. It returns an error only on context cancellation: a message
// that exhausts its retries is considered handled by being
// dead-lettered, and the caller commits its offset either way.
//
// Handler side effects are not rolled back between attempts, so a
// handler that partially applied increments before failing re-applies
// them on retry. Counter mutations here are increments, not sets, so
// the durable aggregate may overcount by at most MaxRetries-1 per
// failed message; this is an accepted trade-off inherited from the
// produce path being decoupled from user requests.
func (d *DeadLetterer) Process(ctx context.Context, msg Message, handler Handler) error {
	start := time.Now()

	event, err := events.Parse(msg.Value)
	if err != nil {
		// Un-parseable messages go straight to the DLQ; retrying a
		// parse error is pointless.
		d.send(ctx, msg, "parse error", "parse_error")
		metrics.RecordMessage(msg.Topic, "dead_lettered", time.Since(start))
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = handler(ctx, event)
		if lastErr == nil {
			metrics.RecordMessage(msg.Topic, "ok", time.Since(start))
			return nil
		}

		d.log.Warn().
			Str("topic", msg.Topic).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Int("attempt", attempt).
			Int("max_retries", MaxRetries).
			Err(lastErr).
			Msg("handler attempt failed")
		metrics.HandlerRetries.WithLabelValues(msg.Topic).Inc()

		// Exponential backoff: 200ms, 400ms, 800ms.
		d.sleep(ctx, retryBaseDelay<<(attempt-1))
	}

	d.send(ctx, msg, lastErr.Error(), "retries_exhausted")
	metrics.RecordMessage(msg.Topic, "dead_lettered", time.Since(start))
	return nil
}

// send publishes the DLQ envelope. Publish failures are logged and
// swallowed: retrying the failure path would recurse without bound.
func (d *DeadLetterer) send(ctx context.Context, msg Message, cause, reason string) {
	envelope := Envelope{
		OriginalTopic:     msg.Topic,
		OriginalPartition: msg.Partition,
		OriginalOffset:    msg.Offset,
		Error:             cause,
		RetryCount:        MaxRetries,
		FailedAt:          time.Now().UTC(),
		Payload:           string(msg.Value),
	}

	dlqTopic := msg.Topic + DLQSuffix
	key := fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)

	value, err := json.Marshal(envelope)
	if err != nil {
		d.log.Error().Err(err).Str("topic", dlqTopic).Msg("failed to encode DLQ envelope")
		metrics.DLQWriteFailures.WithLabelValues(msg.Topic).Inc()
		return
	}

	if err := d.publisher.Publish(ctx, dlqTopic, []byte(key), value); err != nil {
		d.log.Error().Err(err).Str("topic", dlqTopic).Msg("failed to write to DLQ")
		metrics.DLQWriteFailures.WithLabelValues(msg.Topic).Inc()
		return
	}

	d.log.Warn().
		Str("topic", dlqTopic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("reason", reason).
		Msg("message sent to DLQ")
	metrics.DLQMessages.WithLabelValues(msg.Topic, reason).Inc()
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

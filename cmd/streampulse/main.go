// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package main is the entry point for the Streampulse event pipeline.
//
// The pipeline consumes domain events (views, likes, comments,
// subscriptions) from Kafka, turns them into durable counters and a
// ranked trending signal, and guarantees that no event is silently
// lost: a message either applies its counter mutations or lands in the
// topic's dead-letter queue.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, STREAMPULSE_* env)
//  2. Logging (zerolog)
//  3. Redis (distributed counters, trending set, shared cache)
//  4. Postgres (durable aggregates, trending fallback)
//  5. Kafka publisher (dead-letter topics)
//  6. Supervisor tree: four domain consumers, the counter aggregator,
//     and the ops HTTP server
//
// Shutdown on SIGINT/SIGTERM cancels the tree; consumers stop fetching,
// the aggregator performs one final flush, and connections are closed.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/streampulse/streampulse/internal/broker"
	"github.com/streampulse/streampulse/internal/config"
	"github.com/streampulse/streampulse/internal/consumers"
	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/logging"
	"github.com/streampulse/streampulse/internal/server"
	"github.com/streampulse/streampulse/internal/storage"
	"github.com/streampulse/streampulse/internal/supervisor"
	"github.com/streampulse/streampulse/internal/trending"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("fatal error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Timestamp: true,
	})

	// Instance id disambiguates replicas sharing a consumer group in
	// aggregated logs.
	instanceID := uuid.NewString()[:8]
	logging.SetLogger(logging.With().Str("instance", instanceID).Logger())
	logging.Info().Msg("starting streampulse event pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Distributed store.
	redisClient := counters.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logging.Error().Err(err).Msg("redis close failed")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	redisStore := counters.NewRedisStore(redisClient)
	logging.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	// Durable store behind a circuit breaker.
	pool, err := storage.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := storage.NewStore(pool)
	durable := storage.NewBreakerStore(store)
	logging.Info().Msg("postgres connected")

	// Trending engine.
	engine := trending.NewEngine(
		trending.NewRedisRealtime(redisClient),
		redisStore,
		store,
		cfg.Trending.CacheTTL,
	)

	// Counter aggregator.
	aggregator := counters.NewAggregator(redisStore, durable, cfg.Counters.FlushInterval)

	// Dead-letter publishing.
	publisher := broker.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("publisher close failed")
		}
	}()
	dlq := broker.NewDeadLetterer(publisher)

	// Supervisor tree.
	tree := supervisor.NewTree(logging.Slog(), supervisor.DefaultTreeConfig())
	for _, consumer := range consumers.Build(&cfg.Kafka, dlq, consumers.Deps{
		Aggregator: aggregator,
		Dist:       redisStore,
		Trending:   engine,
		Channels:   durable,
	}) {
		tree.AddConsumer(consumer)
	}
	tree.AddAggregator(aggregator)
	tree.AddAPI(server.New(cfg.Server, engine))

	logging.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Int("port", cfg.Server.Port).
		Msg("all services registered")

	err = tree.Serve(ctx)
	logging.Info().Msg("streampulse stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

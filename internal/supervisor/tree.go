// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package supervisor arranges the pipeline's long-running services into
// a suture tree with failure isolation between layers.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64

	// FailureBackoff is the wait when the threshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds graceful shutdown per service.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the supervisor hierarchy for the pipeline:
//
//   - ingest: the four domain consumers, restarted independently so a
//     poisoned topic cannot take down the others
//   - aggregation: the counter flush loop
//   - api: the ops HTTP server
type Tree struct {
	root        *suture.Supervisor
	ingest      *suture.Supervisor
	aggregation *suture.Supervisor
	api         *suture.Supervisor
}

// NewTree builds the supervisor tree. logger receives suture lifecycle
// events via sutureslog.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5.0
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30.0
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}
	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	root := suture.New("streampulse", rootSpec)
	ingest := suture.New("ingest-layer", childSpec)
	aggregation := suture.New("aggregation-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(ingest)
	root.Add(aggregation)
	root.Add(api)

	return &Tree{
		root:        root,
		ingest:      ingest,
		aggregation: aggregation,
		api:         api,
	}
}

// AddConsumer adds a domain consumer to the ingest layer.
func (t *Tree) AddConsumer(svc suture.Service) suture.ServiceToken {
	return t.ingest.Add(svc)
}

// AddAggregator adds the counter aggregator to the aggregation layer.
func (t *Tree) AddAggregator(svc suture.Service) suture.ServiceToken {
	return t.aggregation.Add(svc)
}

// AddAPI adds the ops server to the api layer.
func (t *Tree) AddAPI(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until the context is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

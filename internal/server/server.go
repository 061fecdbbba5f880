// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package server exposes the ops HTTP surface: health, Prometheus
// metrics, and read endpoints over the trending engine. The producing
// application layer lives elsewhere; this surface exists for Docker
// health checks, scraping and operators.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/streampulse/streampulse/internal/config"
	"github.com/streampulse/streampulse/internal/logging"
	"github.com/streampulse/streampulse/internal/trending"
)

// Server is the ops HTTP server. It implements suture.Service.
type Server struct {
	cfg      config.ServerConfig
	trending *trending.Engine
	log      zerolog.Logger
}

// New builds the ops server over the trending engine.
func New(cfg config.ServerConfig, engine *trending.Engine) *Server {
	return &Server{
		cfg:      cfg,
		trending: engine,
		log:      logging.With().Str("component", "ops-server").Logger(),
	}
}

// String identifies the server in supervisor logs.
func (s *Server) String() string {
	return "ops-server"
}

// Routes assembles the chi router. Exposed for handler tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/trending", s.handleTrending)
	r.Get("/videos/{id}/stats/realtime", s.handleVideoStats)
	r.Get("/channels/{id}/stats/realtime", s.handleChannelStats)

	return r
}

// Serve runs the HTTP server until the context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("ops server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("ops server shutdown failed")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	feed, err := s.trending.TrendingFeed(r.Context(), page, limit)
	if err != nil {
		s.fail(w, err, "trending feed failed")
		return
	}
	s.respond(w, feed)
}

func (s *Server) handleVideoStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.trending.VideoRealtimeStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err, "video realtime stats failed")
		return
	}
	s.respond(w, stats)
}

func (s *Server) handleChannelStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.trending.ChannelRealtimeStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err, "channel realtime stats failed")
		return
	}
	s.respond(w, stats)
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error, msg string) {
	s.log.Error().Err(err).Msg(msg)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

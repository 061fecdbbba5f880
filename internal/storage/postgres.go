// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package storage is the durable store for aggregated counters and the
// trending fallback/read queries, backed by Postgres via pgx.
//
// All counter writes are expressed as increments, never absolute sets,
// so concurrent flushers from multiple processes commute.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/metrics"
)

// db is the slice of pgxpool.Pool the store uses; tests substitute a
// fake.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Channel is the denormalized channel summary embedded in video reads.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatarUrl"`
	Verified  bool   `json:"verified"`
}

// Video is the read model returned by the trending queries.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Duration     int64     `json:"duration"`
	Views        int64     `json:"views"`
	Likes        int64     `json:"likes"`
	Type         string    `json:"type"`
	Category     string    `json:"category"`
	PublishedAt  time.Time `json:"publishedAt"`
	Channel      Channel   `json:"channel"`
}

// Store implements the durable side of the pipeline on Postgres.
type Store struct {
	db db
}

// NewStore wraps a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// NewPool dials Postgres with the configured pool size.
func NewPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = maxConns
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// UpsertVideoStats creates the aggregate row with floor-zero initial
// values or increments existing 64-bit counters by the signed deltas.
// GREATEST clamps creation so a window that begins with deletes cannot
// produce a negative row.
func (s *Store) UpsertVideoStats(ctx context.Context, videoID string, d counters.VideoStatsDelta) error {
	start := time.Now()
	_, err := s.db.Exec(ctx, `
		INSERT INTO video_stats (video_id, view_count, like_count, dislike_count, comment_count, share_count)
		VALUES ($1, GREATEST($2, 0), GREATEST($3, 0), GREATEST($4, 0), GREATEST($5, 0), GREATEST($6, 0))
		ON CONFLICT (video_id) DO UPDATE SET
			view_count    = video_stats.view_count + $2,
			like_count    = video_stats.like_count + $3,
			dislike_count = video_stats.dislike_count + $4,
			comment_count = video_stats.comment_count + $5,
			share_count   = video_stats.share_count + $6,
			updated_at    = now()`,
		videoID, d.Views, d.Likes, d.Dislikes, d.Comments, d.Shares)
	metrics.RecordStoreWrite("upsert_video_stats", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert video_stats %s: %w", videoID, err)
	}
	return nil
}

// SyncVideoCounters increments the denormalized counter columns on the
// video record so listing queries avoid a join against video_stats.
func (s *Store) SyncVideoCounters(ctx context.Context, videoID string, viewsDelta, likesDelta int64) error {
	start := time.Now()
	_, err := s.db.Exec(ctx, `
		UPDATE videos
		SET views_cache = views_cache + $2,
		    likes_cache = likes_cache + $3
		WHERE id = $1`,
		videoID, viewsDelta, likesDelta)
	metrics.RecordStoreWrite("sync_video_counters", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("sync video counters %s: %w", videoID, err)
	}
	return nil
}

// IncrementChannelSubscribers adjusts the channel's subscriber count.
// Subscriptions are low-volume, so this is written through immediately
// instead of batched through the aggregation window.
func (s *Store) IncrementChannelSubscribers(ctx context.Context, channelID string, delta int64) error {
	start := time.Now()
	_, err := s.db.Exec(ctx, `
		UPDATE channels
		SET subscriber_count = subscriber_count + $2
		WHERE id = $1`,
		channelID, delta)
	metrics.RecordStoreWrite("increment_channel_subscribers", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("increment channel subscribers %s: %w", channelID, err)
	}
	return nil
}

const videoSelect = `
	SELECT v.id, v.title, v.thumbnail_url, v.duration, v.views_cache, v.likes_cache,
	       v.type, v.category, v.published_at,
	       c.id, c.name, c.handle, c.avatar_url, c.verified
	FROM videos v
	JOIN channels c ON c.id = v.channel_id`

// VideosByIDs fetches full records for ready, public videos in ids.
// Result order is whatever the store returns; callers that care about
// ranking must re-order.
func (s *Store) VideosByIDs(ctx context.Context, ids []string) ([]Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, videoSelect+`
		WHERE v.id = ANY($1) AND v.status = 'READY' AND v.is_public`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("select videos by ids: %w", err)
	}
	defer rows.Close()
	return scanVideos(rows)
}

// TrendingFallback orders recently published public videos by view and
// like count over the trailing seven days. Used when the ranked set is
// empty (cold start, post-restart).
func (s *Store) TrendingFallback(ctx context.Context, page, limit int) ([]Video, int, error) {
	since := time.Now().Add(-7 * 24 * time.Hour)
	offset := (page - 1) * limit

	rows, err := s.db.Query(ctx, videoSelect+`
		WHERE v.status = 'READY' AND v.is_public AND v.published_at >= $1
		ORDER BY v.views_cache DESC, v.likes_cache DESC
		LIMIT $2 OFFSET $3`,
		since, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("trending fallback query: %w", err)
	}
	defer rows.Close()

	videos, err := scanVideos(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = s.db.QueryRow(ctx, `
		SELECT count(*) FROM videos v
		WHERE v.status = 'READY' AND v.is_public AND v.published_at >= $1`,
		since).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("trending fallback count: %w", err)
	}
	return videos, total, nil
}

// ChannelVideoIDs lists the ready videos of a channel for aggregate
// realtime stats.
func (s *Store) ChannelVideoIDs(ctx context.Context, channelID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM videos WHERE channel_id = $1 AND status = 'READY'`,
		channelID)
	if err != nil {
		return nil, fmt.Errorf("select channel videos %s: %w", channelID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel video id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanVideos(rows pgx.Rows) ([]Video, error) {
	var videos []Video
	for rows.Next() {
		var v Video
		if err := rows.Scan(
			&v.ID, &v.Title, &v.ThumbnailURL, &v.Duration, &v.Views, &v.Likes,
			&v.Type, &v.Category, &v.PublishedAt,
			&v.Channel.ID, &v.Channel.Name, &v.Channel.Handle,
			&v.Channel.AvatarURL, &v.Channel.Verified,
		); err != nil {
			return nil, fmt.Errorf("scan video row: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

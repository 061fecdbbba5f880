// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package trending

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for the trending signal and windowed realtime counters.
const (
	trendingSetKey = "stats:trending"

	hourlyTTL = 2 * time.Hour
	dailyTTL  = 25 * time.Hour
)

func viewsHourKey(videoID string) string  { return "stats:views:hour:" + videoID }
func viewsTodayKey(videoID string) string { return "stats:views:today:" + videoID }
func watchTimeKey(videoID string) string  { return "stats:watchtime:" + videoID }
func engagementsKey(videoID string) string {
	return "stats:engage:" + videoID
}

// RealtimeStore maintains the ranked set and the windowed per-video
// counters behind the engine. Tests substitute an in-memory fake.
type RealtimeStore interface {
	// TrackView bumps the hourly/daily/watch-time counters and the
	// ranked-set score by one, refreshing window TTLs.
	TrackView(ctx context.Context, videoID string, watchSeconds int64) error

	// TrackEngagement increments the engagement hash field.
	TrackEngagement(ctx context.Context, videoID, kind string) error

	// BumpScore adds weight to the video's ranked-set score.
	BumpScore(ctx context.Context, videoID string, weight float64) error

	// TopVideos reads up to limit ids in descending score order.
	TopVideos(ctx context.Context, limit int) ([]string, error)

	// VideoStats reads the windowed counters and engagement hash.
	VideoStats(ctx context.Context, videoID string) (RealtimeStats, error)
}

// RedisRealtime implements RealtimeStore on go-redis.
type RedisRealtime struct {
	client redis.UniversalClient
}

// NewRedisRealtime wraps an existing client.
func NewRedisRealtime(client redis.UniversalClient) *RedisRealtime {
	return &RedisRealtime{client: client}
}

func (r *RedisRealtime) TrackView(ctx context.Context, videoID string, watchSeconds int64) error {
	pipe := r.client.Pipeline()

	pipe.Incr(ctx, viewsHourKey(videoID))
	pipe.Expire(ctx, viewsHourKey(videoID), hourlyTTL)

	pipe.Incr(ctx, viewsTodayKey(videoID))
	pipe.Expire(ctx, viewsTodayKey(videoID), dailyTTL)

	pipe.IncrBy(ctx, watchTimeKey(videoID), watchSeconds)
	pipe.Expire(ctx, watchTimeKey(videoID), dailyTTL)

	pipe.ZIncrBy(ctx, trendingSetKey, 1, videoID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track view %s: %w", videoID, err)
	}
	return nil
}

func (r *RedisRealtime) TrackEngagement(ctx context.Context, videoID, kind string) error {
	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, engagementsKey(videoID), kind, 1)
	pipe.Expire(ctx, engagementsKey(videoID), dailyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track engagement %s %s: %w", videoID, kind, err)
	}
	return nil
}

func (r *RedisRealtime) BumpScore(ctx context.Context, videoID string, weight float64) error {
	if err := r.client.ZIncrBy(ctx, trendingSetKey, weight, videoID).Err(); err != nil {
		return fmt.Errorf("bump score %s: %w", videoID, err)
	}
	return nil
}

func (r *RedisRealtime) TopVideos(ctx context.Context, limit int) ([]string, error) {
	ids, err := r.client.ZRevRange(ctx, trendingSetKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("top videos: %w", err)
	}
	return ids, nil
}

func (r *RedisRealtime) VideoStats(ctx context.Context, videoID string) (RealtimeStats, error) {
	pipe := r.client.Pipeline()
	hour := pipe.Get(ctx, viewsHourKey(videoID))
	today := pipe.Get(ctx, viewsTodayKey(videoID))
	watch := pipe.Get(ctx, watchTimeKey(videoID))
	engage := pipe.HGetAll(ctx, engagementsKey(videoID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return RealtimeStats{}, fmt.Errorf("video stats %s: %w", videoID, err)
	}

	stats := RealtimeStats{
		ViewsLastHour:    intOrZero(hour),
		ViewsToday:       intOrZero(today),
		WatchTimeSeconds: intOrZero(watch),
		Engagements:      map[string]int64{},
	}
	for kind, raw := range engage.Val() {
		var n int64
		if _, err := fmt.Sscan(raw, &n); err == nil {
			stats.Engagements[kind] = n
		}
	}
	return stats, nil
}

func intOrZero(cmd *redis.StringCmd) int64 {
	v, err := cmd.Int64()
	if err != nil {
		return 0
	}
	return v
}

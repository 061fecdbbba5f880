// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package trending maintains the weighted engagement ranking used by
// the trending feed, plus windowed realtime counters for creator
// analytics.
//
// Scores are adjusted directly per event rather than recomputed from
// counters, so recency is implicit: a periodic decay job (external to
// this service) keeps old engagement from dominating.
package trending

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/logging"
	"github.com/streampulse/streampulse/internal/metrics"
	"github.com/streampulse/streampulse/internal/storage"
)

// Engagement weights. Score = views + like*2 + comment*3 + share*5.
// Compiled-in constants, not configurable at runtime.
const (
	WeightLike    = 2
	WeightComment = 3
	WeightShare   = 5
)

// candidatePool is how many ranked ids back a feed page.
const candidatePool = 100

// EngagementKind names a weighted engagement type.
type EngagementKind string

const (
	EngagementLike    EngagementKind = "like"
	EngagementComment EngagementKind = "comment"
	EngagementShare   EngagementKind = "share"
)

// RealtimeStats is the per-video projection over windowed counters.
type RealtimeStats struct {
	ViewsLastHour    int64            `json:"viewsLastHour"`
	ViewsToday       int64            `json:"viewsToday"`
	WatchTimeSeconds int64            `json:"watchTimeSeconds"`
	Engagements      map[string]int64 `json:"engagements"`
}

// ChannelStats sums realtime stats across a channel's videos.
type ChannelStats struct {
	TotalViewsToday       int64 `json:"totalViewsToday"`
	TotalWatchTimeMinutes int64 `json:"totalWatchTimeMinutes"`
	VideoCount            int   `json:"videoCount"`
}

// Feed is a page of trending videos. Total is the candidate pool size
// when served from the ranked set, or the true 7-day count when served
// from the fallback.
type Feed struct {
	Videos []storage.Video `json:"videos"`
	Total  int             `json:"total"`
}

// VideoStore is the durable read surface the feed needs.
type VideoStore interface {
	VideosByIDs(ctx context.Context, ids []string) ([]storage.Video, error)
	TrendingFallback(ctx context.Context, page, limit int) ([]storage.Video, int, error)
	ChannelVideoIDs(ctx context.Context, channelID string) ([]string, error)
}

// Engine ties the ranked set, the id cache and the durable fallback
// together.
type Engine struct {
	realtime RealtimeStore
	cache    counters.Cache
	videos   VideoStore
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewEngine builds the trending engine. cacheTTL bounds staleness of
// the trending id list (2 minutes in production).
func NewEngine(realtime RealtimeStore, cache counters.Cache, videos VideoStore, cacheTTL time.Duration) *Engine {
	return &Engine{
		realtime: realtime,
		cache:    cache,
		videos:   videos,
		cacheTTL: cacheTTL,
		log:      logging.With().Str("component", "trending").Logger(),
	}
}

// RecordView bumps the video's windowed counters and its ranked-set
// score by one. watchSeconds may be zero when the producer did not
// report a duration.
func (e *Engine) RecordView(ctx context.Context, videoID string, watchSeconds float64) error {
	return e.realtime.TrackView(ctx, videoID, int64(math.Round(watchSeconds)))
}

// RecordEngagement increments the per-video engagement hash field and
// bumps the ranked-set score by the kind's fixed weight.
func (e *Engine) RecordEngagement(ctx context.Context, videoID string, kind EngagementKind) error {
	if err := e.realtime.TrackEngagement(ctx, videoID, string(kind)); err != nil {
		return err
	}
	return e.realtime.BumpScore(ctx, videoID, float64(weightFor(kind)))
}

func weightFor(kind EngagementKind) int {
	switch kind {
	case EngagementComment:
		return WeightComment
	case EngagementShare:
		return WeightShare
	default:
		return WeightLike
	}
}

// TrendingIDs returns the top limit ids in descending score order,
// cached for cacheTTL under a per-limit key. An empty ranked set yields
// an empty list; this method itself never falls back.
func (e *Engine) TrendingIDs(ctx context.Context, limit int) ([]string, error) {
	cacheKey := fmt.Sprintf("trending:ids:%d", limit)

	var cached []string
	if hit, err := e.cache.Get(ctx, cacheKey, &cached); err != nil {
		e.log.Warn().Err(err).Msg("trending id cache read failed")
	} else if hit {
		metrics.TrendingCacheHits.Inc()
		return cached, nil
	}
	metrics.TrendingCacheMisses.Inc()

	ids, err := e.realtime.TopVideos(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		if err := e.cache.Set(ctx, cacheKey, ids, e.cacheTTL); err != nil {
			e.log.Warn().Err(err).Msg("trending id cache write failed")
		}
	}
	return ids, nil
}

// TrendingFeed pages into the top-100 ranked candidates, fetches full
// records from the durable store, and re-orders them to match the
// ranked set (store result order is not guaranteed). Total reports the
// candidate pool size, not the store's true total. When the ranked set
// has no candidates for the page, the durable fallback serves the feed.
func (e *Engine) TrendingFeed(ctx context.Context, page, limit int) (*Feed, error) {
	if page < 1 {
		page = 1
	}
	ids, err := e.TrendingIDs(ctx, candidatePool)
	if err != nil {
		return nil, err
	}

	pageIDs := paginate(ids, page, limit)
	if len(pageIDs) == 0 {
		metrics.TrendingFallbacks.Inc()
		videos, total, err := e.videos.TrendingFallback(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		return &Feed{Videos: videos, Total: total}, nil
	}

	videos, err := e.videos.VideosByIDs(ctx, pageIDs)
	if err != nil {
		return nil, err
	}
	return &Feed{Videos: reorderByRank(pageIDs, videos), Total: len(ids)}, nil
}

// VideoRealtimeStats reads the windowed counters for one video.
func (e *Engine) VideoRealtimeStats(ctx context.Context, videoID string) (RealtimeStats, error) {
	return e.realtime.VideoStats(ctx, videoID)
}

// ChannelRealtimeStats sums per-video stats across the channel. Linear
// in the channel's video count, which stays in the tens to low
// hundreds.
func (e *Engine) ChannelRealtimeStats(ctx context.Context, channelID string) (ChannelStats, error) {
	ids, err := e.videos.ChannelVideoIDs(ctx, channelID)
	if err != nil {
		return ChannelStats{}, err
	}

	out := ChannelStats{VideoCount: len(ids)}
	var watchSeconds int64
	for _, id := range ids {
		stats, err := e.realtime.VideoStats(ctx, id)
		if err != nil {
			return ChannelStats{}, err
		}
		out.TotalViewsToday += stats.ViewsToday
		watchSeconds += stats.WatchTimeSeconds
	}
	out.TotalWatchTimeMinutes = int64(math.Round(float64(watchSeconds) / 60))
	return out, nil
}

// paginate slices ids for a 1-based page of the given size.
func paginate(ids []string, page, limit int) []string {
	start := (page - 1) * limit
	if start >= len(ids) {
		return nil
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end]
}

// reorderByRank returns videos in the order of ids, dropping ids the
// store did not return (deleted or no longer public).
func reorderByRank(ids []string, videos []storage.Video) []storage.Video {
	byID := make(map[string]storage.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	out := make([]storage.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

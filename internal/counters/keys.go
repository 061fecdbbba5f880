// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package counters

import (
	"fmt"
	"strings"
	"time"
)

// Counter keys are composite strings "<entityType>:<entityId>:<metric>",
// e.g. "video:42:views". The flush path recognizes the video metrics
// below and folds them into the durable aggregate row; every other key
// lives only in the distributed store.

// Video metrics aggregated into the durable video_stats row.
const (
	MetricViews    = "views"
	MetricLikes    = "likes"
	MetricDislikes = "dislikes"
	MetricComments = "comments"
	MetricShares   = "shares"
)

// VideoKey builds "video:<id>:<metric>".
func VideoKey(videoID, metric string) string {
	return fmt.Sprintf("video:%s:%s", videoID, metric)
}

// DailyVideoViewsKey builds the day-bucketed view counter
// "video:<id>:views:<YYYY-MM-DD>". Day buckets stay distributed-only.
func DailyVideoViewsKey(videoID string, t time.Time) string {
	return fmt.Sprintf("video:%s:views:%s", videoID, t.UTC().Format("2006-01-02"))
}

// CommentLikesKey builds "comment:<id>:likes" (distributed-only).
func CommentLikesKey(commentID string) string {
	return fmt.Sprintf("comment:%s:likes", commentID)
}

// ChannelSubscribersKey builds "channel:<id>:subscribers".
func ChannelSubscribersKey(channelID string) string {
	return fmt.Sprintf("channel:%s:subscribers", channelID)
}

// UserKey builds "user:<id>:<metric>", e.g. watched, comments,
// subscriptions.
func UserKey(userID, metric string) string {
	return fmt.Sprintf("user:%s:%s", userID, metric)
}

// UserLikedSignalKey builds the recommendation signal counter
// "rec:user:<id>:liked".
func UserLikedSignalKey(userID string) string {
	return fmt.Sprintf("rec:user:%s:liked", userID)
}

// VideoCacheKey is the cached detail view invalidated on engagement.
func VideoCacheKey(videoID string) string {
	return "video:" + videoID
}

// VideoCommentsCacheKey is the cached comment listing for a video.
func VideoCommentsCacheKey(videoID string) string {
	return fmt.Sprintf("video:%s:comments", videoID)
}

// ChannelCacheKey is the cached channel page.
func ChannelCacheKey(channelID string) string {
	return "channel:" + channelID
}

// splitVideoMetric reports the video id and metric for keys of the
// exact form "video:<id>:<metric>" where metric is one of the durable
// video metrics. Day-bucketed and foreign keys return ok=false.
func splitVideoMetric(key string) (videoID, metric string, ok bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "video" {
		return "", "", false
	}
	switch parts[2] {
	case MetricViews, MetricLikes, MetricDislikes, MetricComments, MetricShares:
		return parts[1], parts[2], true
	default:
		return "", "", false
	}
}

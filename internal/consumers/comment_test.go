// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package consumers

import (
	"context"
	"testing"

	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/events"
)

func TestCommentHandlerCreate(t *testing.T) {
	h := newHarness()
	handler := CommentHandler(h.deps)

	err := handler(context.Background(), &events.Event{
		Type:      events.CommentCreate,
		VideoID:   "v1",
		CommentID: "c1",
		UserID:    "u1",
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	key := counters.VideoKey("v1", counters.MetricComments)
	if got := h.deps.Aggregator.Pending(key); got != 1 {
		t.Errorf("pending comments = %d, want 1", got)
	}
	if got := h.dist.counters[key]; got != 1 {
		t.Errorf("counter = %d, want 1", got)
	}
	if !h.dist.deletedContains(counters.VideoCacheKey("v1")) {
		t.Errorf("video cache not invalidated")
	}
	if !h.dist.deletedContains(counters.VideoCommentsCacheKey("v1")) {
		t.Errorf("comment list cache not invalidated")
	}
	if got := h.dist.counters[counters.UserKey("u1", "comments")]; got != 1 {
		t.Errorf("user comments counter = %d, want 1", got)
	}
	if got := h.realtime.engagements["v1"]["comment"]; got != 1 {
		t.Errorf("comment engagement = %d, want 1", got)
	}
	if got := h.realtime.scores["v1"]; got != 3 {
		t.Errorf("trending score = %v, want comment weight 3", got)
	}
}

func TestCommentHandlerDelete(t *testing.T) {
	h := newHarness()
	handler := CommentHandler(h.deps)

	err := handler(context.Background(), &events.Event{
		Type:    events.CommentDelete,
		VideoID: "v1",
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	key := counters.VideoKey("v1", counters.MetricComments)
	if got := h.deps.Aggregator.Pending(key); got != -1 {
		t.Errorf("pending comments = %d, want -1", got)
	}
	if !h.dist.deletedContains(counters.VideoCommentsCacheKey("v1")) {
		t.Errorf("comment list cache not invalidated")
	}
	// Deletes do not touch the full video cache and never score.
	if h.dist.deletedContains(counters.VideoCacheKey("v1")) {
		t.Errorf("video cache invalidated on delete")
	}
	if got := h.realtime.scores["v1"]; got != 0 {
		t.Errorf("trending score = %v, want 0", got)
	}
}

func TestCommentHandlerCommentLike(t *testing.T) {
	h := newHarness()
	handler := CommentHandler(h.deps)

	err := handler(context.Background(), &events.Event{
		Type:      events.CommentLike,
		CommentID: "c1",
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	if got := h.dist.counters[counters.CommentLikesKey("c1")]; got != 1 {
		t.Errorf("comment likes counter = %d, want 1", got)
	}
	// Comment likes stay out of the durable aggregation window.
	if got := h.deps.Aggregator.Pending(counters.VideoKey("v1", counters.MetricComments)); got != 0 {
		t.Errorf("pending window = %d, want 0", got)
	}
}

func TestCommentHandlerValidation(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
	}{
		{"create missing videoId", events.Event{Type: events.CommentCreate}},
		{"delete missing videoId", events.Event{Type: events.CommentDelete}},
		{"like missing commentId", events.Event{Type: events.CommentLike, VideoID: "v1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			if err := CommentHandler(h.deps)(context.Background(), &tt.event); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCommentHandlerIgnoresOtherTypes(t *testing.T) {
	h := newHarness()
	if err := CommentHandler(h.deps)(context.Background(), &events.Event{Type: events.VideoUpload}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(h.dist.counters) != 0 {
		t.Errorf("unexpected writes: %v", h.dist.counters)
	}
}

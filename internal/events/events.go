// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

// Package events defines the domain event schema carried on the broker.
//
// Events are JSON-encoded with a discriminating "type" field. Topics may
// carry a superset of event types over time, so consumers must treat
// unrecognized types as a no-op rather than an error.
package events

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Type discriminates event payloads.
type Type string

const (
	VideoView          Type = "video.view"
	VideoLike          Type = "video.like"
	VideoDislike       Type = "video.dislike"
	VideoUnlike        Type = "video.unlike"
	CommentCreate      Type = "comment.create"
	CommentLike        Type = "comment.like"
	CommentDelete      Type = "comment.delete"
	SubscriptionCreate Type = "subscription.create"
	SubscriptionDelete Type = "subscription.delete"
	VideoUpload        Type = "video.upload"
	UserActivity       Type = "user.activity"
)

// Event is the wire schema shared by all event categories. Only Type is
// guaranteed; the remaining fields are populated per category.
type Event struct {
	ID        string `json:"id,omitempty"`
	Type      Type   `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"` // unix milliseconds
	UserID    string `json:"userId,omitempty"`

	// Video events
	VideoID  string  `json:"videoId,omitempty"`
	Duration float64 `json:"duration,omitempty"` // watch duration, seconds
	Quality  string  `json:"quality,omitempty"`

	// Comment events
	CommentID string `json:"commentId,omitempty"`
	ParentID  string `json:"parentId,omitempty"`

	// Subscription events
	ChannelID string `json:"channelId,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Parse decodes a raw broker message body into an Event.
func Parse(raw []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("parse event: missing type field")
	}
	return &e, nil
}

// Encode serializes an event for publishing. Used by tests and tooling;
// the pipeline itself only consumes.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

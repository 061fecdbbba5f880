// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMessage(t *testing.T) {
	before := testutil.ToFloat64(EventsConsumed.WithLabelValues("video.views", "ok"))
	RecordMessage("video.views", "ok", 5*time.Millisecond)
	after := testutil.ToFloat64(EventsConsumed.WithLabelValues("video.views", "ok"))

	if after != before+1 {
		t.Errorf("events consumed = %v, want %v", after, before+1)
	}
}

func TestRecordMessageOutcomesAreSeparateSeries(t *testing.T) {
	ok := testutil.ToFloat64(EventsConsumed.WithLabelValues("video.likes", "ok"))
	RecordMessage("video.likes", "dead_lettered", time.Millisecond)

	if got := testutil.ToFloat64(EventsConsumed.WithLabelValues("video.likes", "ok")); got != ok {
		t.Errorf("ok series moved on a dead_lettered record: %v", got)
	}
	if got := testutil.ToFloat64(EventsConsumed.WithLabelValues("video.likes", "dead_lettered")); got < 1 {
		t.Errorf("dead_lettered series = %v", got)
	}
}

func TestRecordStoreWrite(t *testing.T) {
	errBefore := testutil.ToFloat64(StoreWriteErrors.WithLabelValues("upsert_video_stats"))

	RecordStoreWrite("upsert_video_stats", time.Millisecond, nil)
	if got := testutil.ToFloat64(StoreWriteErrors.WithLabelValues("upsert_video_stats")); got != errBefore {
		t.Errorf("error counter moved on success: %v", got)
	}

	RecordStoreWrite("upsert_video_stats", time.Millisecond, errors.New("write failed"))
	if got := testutil.ToFloat64(StoreWriteErrors.WithLabelValues("upsert_video_stats")); got != errBefore+1 {
		t.Errorf("error counter = %v, want %v", got, errBefore+1)
	}
}

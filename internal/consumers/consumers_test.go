// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package consumers

import (
	"context"
	"errors"
	"time"

	"github.com/streampulse/streampulse/internal/counters"
	"github.com/streampulse/streampulse/internal/storage"
	"github.com/streampulse/streampulse/internal/trending"
)

// fakeDist records every distributed mutation so handler tests can
// assert the exact key traffic.
type fakeDist struct {
	live     map[string]int64
	counters map[string]int64
	deleted  []string
	err      error
}

func newFakeDist() *fakeDist {
	return &fakeDist{live: map[string]int64{}, counters: map[string]int64{}}
}

func (f *fakeDist) MirrorIncrement(_ context.Context, key string, amount int64) error {
	if f.err != nil {
		return f.err
	}
	f.live[key] += amount
	return nil
}

func (f *fakeDist) PersistDeltas(_ context.Context, deltas map[string]int64) error {
	return f.err
}

func (f *fakeDist) IncrementCounter(_ context.Context, key string, amount int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counters[key] += amount
	return f.counters[key], nil
}

func (f *fakeDist) GetCounter(_ context.Context, key string) (int64, error) {
	return f.counters[key], f.err
}

func (f *fakeDist) CacheDelete(_ context.Context, keys ...string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, keys...)
	return nil
}

func (f *fakeDist) deletedContains(key string) bool {
	for _, k := range f.deleted {
		if k == key {
			return true
		}
	}
	return false
}

// fakeRealtime records trending signals.
type fakeRealtime struct {
	views       map[string]int64
	watch       map[string]int64
	scores      map[string]float64
	engagements map[string]map[string]int64
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{
		views:       map[string]int64{},
		watch:       map[string]int64{},
		scores:      map[string]float64{},
		engagements: map[string]map[string]int64{},
	}
}

func (f *fakeRealtime) TrackView(_ context.Context, id string, watchSeconds int64) error {
	f.views[id]++
	f.watch[id] += watchSeconds
	f.scores[id]++
	return nil
}

func (f *fakeRealtime) TrackEngagement(_ context.Context, id, kind string) error {
	if f.engagements[id] == nil {
		f.engagements[id] = map[string]int64{}
	}
	f.engagements[id][kind]++
	return nil
}

func (f *fakeRealtime) BumpScore(_ context.Context, id string, weight float64) error {
	f.scores[id] += weight
	return nil
}

func (f *fakeRealtime) TopVideos(context.Context, int) ([]string, error) { return nil, nil }

func (f *fakeRealtime) VideoStats(context.Context, string) (trending.RealtimeStats, error) {
	return trending.RealtimeStats{}, nil
}

type nopCache struct{}

func (nopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (nopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (nopCache) Delete(context.Context, ...string) error               { return nil }

type nopVideos struct{}

func (nopVideos) VideosByIDs(context.Context, []string) ([]storage.Video, error) {
	return nil, nil
}

func (nopVideos) TrendingFallback(context.Context, int, int) ([]storage.Video, int, error) {
	return nil, 0, nil
}

func (nopVideos) ChannelVideoIDs(context.Context, string) ([]string, error) { return nil, nil }

// fakeChannels records durable write-through subscriber deltas.
type fakeChannels struct {
	deltas map[string]int64
	err    error
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{deltas: map[string]int64{}}
}

func (f *fakeChannels) IncrementChannelSubscribers(_ context.Context, channelID string, delta int64) error {
	if f.err != nil {
		return f.err
	}
	f.deltas[channelID] += delta
	return nil
}

// nopDurable backs the aggregator; handler tests never flush.
type nopDurable struct{}

func (nopDurable) UpsertVideoStats(context.Context, string, counters.VideoStatsDelta) error {
	return nil
}

func (nopDurable) SyncVideoCounters(context.Context, string, int64, int64) error { return nil }

// testHarness bundles freshly wired deps plus the fakes behind them.
type testHarness struct {
	deps     Deps
	dist     *fakeDist
	realtime *fakeRealtime
	channels *fakeChannels
}

func newHarness() *testHarness {
	dist := newFakeDist()
	realtime := newFakeRealtime()
	channels := newFakeChannels()
	return &testHarness{
		deps: Deps{
			Aggregator: counters.NewAggregator(dist, nopDurable{}, time.Hour),
			Dist:       dist,
			Trending:   trending.NewEngine(realtime, nopCache{}, nopVideos{}, time.Minute),
			Channels:   channels,
		},
		dist:     dist,
		realtime: realtime,
		channels: channels,
	}
}

var errStoreDown = errors.New("store down")

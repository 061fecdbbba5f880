// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package counters

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Redis hash namespaces for distributed counters. The live hash is
// incremented synchronously per event so any process sees updates
// without waiting for a flush; the persistent hash mirrors flushed
// deltas as an audit/replay buffer.
const (
	liveHash       = "counters:aggregated"
	persistentHash = "counters:persistent"
)

// DistributedStore is the cross-process counter and cache surface.
// Implemented by RedisStore; tests substitute an in-memory fake.
type DistributedStore interface {
	// MirrorIncrement adds amount to key in the live shared hash.
	MirrorIncrement(ctx context.Context, key string, amount int64) error

	// PersistDeltas mirrors a flushed window into the persistent hash.
	PersistDeltas(ctx context.Context, deltas map[string]int64) error

	// IncrementCounter adds amount to a standalone counter key and
	// returns the new value.
	IncrementCounter(ctx context.Context, key string, amount int64) (int64, error)

	// GetCounter reads a standalone counter; missing keys read 0.
	GetCounter(ctx context.Context, key string) (int64, error)

	// CacheDelete invalidates cached entries.
	CacheDelete(ctx context.Context, keys ...string) error
}

// Cache is the shared JSON cache for hot read paths.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get unmarshals into dest and reports whether the key existed.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore implements DistributedStore and Cache on go-redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient dials Redis with the pipeline's conventions.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: 3,
	})
}

func (s *RedisStore) MirrorIncrement(ctx context.Context, key string, amount int64) error {
	if err := s.client.HIncrBy(ctx, liveHash, key, amount).Err(); err != nil {
		return fmt.Errorf("hincrby %s %s: %w", liveHash, key, err)
	}
	return nil
}

func (s *RedisStore) PersistDeltas(ctx context.Context, deltas map[string]int64) error {
	pipe := s.client.Pipeline()
	for key, delta := range deltas {
		pipe.HIncrBy(ctx, persistentHash, key, delta)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist %d deltas: %w", len(deltas), err)
	}
	return nil
}

func (s *RedisStore) IncrementCounter(ctx context.Context, key string, amount int64) (int64, error) {
	v, err := s.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		return 0, fmt.Errorf("incrby %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) GetCounter(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) CacheDelete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del %v: %w", keys, err)
	}
	return nil
}

// Set stores a JSON-encoded value with a TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("setex %s: %w", key, err)
	}
	return nil
}

// Get loads a JSON-encoded value.
func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cache %s: %w", key, err)
	}
	return true, nil
}

// Delete removes cache keys; an alias of CacheDelete for the Cache
// interface.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	return s.CacheDelete(ctx, keys...)
}

// Client exposes the underlying client for components with redis-native
// needs (the trending engine's sorted set and windowed counters).
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

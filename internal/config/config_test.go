// Streampulse - Video Platform Event Aggregation and Trending
// Copyright 2026 Streampulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streampulse/streampulse

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// pointAtEmptyConfig keeps a developer's local config.yaml from leaking
// into tests.
func pointAtEmptyConfig(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
}

func TestLoadDefaults(t *testing.T) {
	pointAtEmptyConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Kafka.Brokers; len(got) != 1 || got[0] != "localhost:9092" {
		t.Errorf("Kafka.Brokers = %v", got)
	}
	if cfg.Kafka.Topics.Views != "video.views" {
		t.Errorf("Topics.Views = %q", cfg.Kafka.Topics.Views)
	}
	if cfg.Kafka.Topics.Subscriptions != "channel.subscriptions" {
		t.Errorf("Topics.Subscriptions = %q", cfg.Kafka.Topics.Subscriptions)
	}
	if cfg.Counters.FlushInterval != 30*time.Second {
		t.Errorf("Counters.FlushInterval = %v", cfg.Counters.FlushInterval)
	}
	if cfg.Trending.CacheTTL != 2*time.Minute {
		t.Errorf("Trending.CacheTTL = %v", cfg.Trending.CacheTTL)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	pointAtEmptyConfig(t)
	t.Setenv("STREAMPULSE_LOG_LEVEL", "debug")
	t.Setenv("STREAMPULSE_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("STREAMPULSE_KAFKA_GROUP_PREFIX", "staging")
	t.Setenv("STREAMPULSE_KAFKA_TOPICS_VIEWS", "staging.video.views")
	t.Setenv("STREAMPULSE_COUNTERS_FLUSH_INTERVAL", "5s")
	t.Setenv("STREAMPULSE_SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	want := []string{"kafka-1:9092", "kafka-2:9092"}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != want[0] || cfg.Kafka.Brokers[1] != want[1] {
		t.Errorf("Kafka.Brokers = %v, want %v", cfg.Kafka.Brokers, want)
	}
	if cfg.Kafka.GroupPrefix != "staging" {
		t.Errorf("Kafka.GroupPrefix = %q", cfg.Kafka.GroupPrefix)
	}
	if cfg.Kafka.Topics.Views != "staging.video.views" {
		t.Errorf("Topics.Views = %q", cfg.Kafka.Topics.Views)
	}
	if cfg.Counters.FlushInterval != 5*time.Second {
		t.Errorf("Counters.FlushInterval = %v", cfg.Counters.FlushInterval)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
log:
  level: warn
kafka:
  brokers:
    - broker-a:9092
  topics:
    comments: platform.comments
redis:
  addr: redis-0:6379
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "broker-a:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Topics.Comments != "platform.comments" {
		t.Errorf("Topics.Comments = %q", cfg.Kafka.Topics.Comments)
	}
	// Untouched sections keep their defaults.
	if cfg.Kafka.Topics.Views != "video.views" {
		t.Errorf("Topics.Views = %q", cfg.Kafka.Topics.Views)
	}
	if cfg.Redis.Addr != "redis-0:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("STREAMPULSE_LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want env to win over file", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "STREAMPULSE_LOG_LEVEL", "verbose"},
		{"bad log format", "STREAMPULSE_LOG_FORMAT", "xml"},
		{"port out of range", "STREAMPULSE_SERVER_PORT", "70000"},
		{"zero flush interval", "STREAMPULSE_COUNTERS_FLUSH_INTERVAL", "0s"},
		{"empty postgres dsn", "STREAMPULSE_POSTGRES_DSN", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pointAtEmptyConfig(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"STREAMPULSE_LOG_LEVEL", "log.level"},
		{"STREAMPULSE_KAFKA_GROUP_PREFIX", "kafka.group_prefix"},
		{"STREAMPULSE_KAFKA_TOPICS_VIEWS", "kafka.topics.views"},
		{"STREAMPULSE_KAFKA_TOPICS_SUBSCRIPTIONS", "kafka.topics.subscriptions"},
		{"STREAMPULSE_POSTGRES_MAX_CONNS", "postgres.max_conns"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConsumerGroup(t *testing.T) {
	cfg := KafkaConfig{}
	if got := cfg.ConsumerGroup("view-processor"); got != "view-processor" {
		t.Errorf("ConsumerGroup = %q", got)
	}
	cfg.GroupPrefix = "prod"
	if got := cfg.ConsumerGroup("view-processor"); got != "prod-view-processor" {
		t.Errorf("ConsumerGroup = %q", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a:9092 ,b:9092,, c:9092")
	want := []string{"a:9092", "b:9092", "c:9092"}
	if len(got) != len(want) {
		t.Fatalf("splitAndTrim = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitAndTrim[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

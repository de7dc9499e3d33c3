package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envListenAddr, envLogLevel, envQueueCapacity, envWorkers,
		envJobTTL, envHistoryPath, envRedisURL, envEventsChannel,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.QueueCapacity != defaultQueueCapacity {
		t.Errorf("QueueCapacity = %d, want %d", cfg.QueueCapacity, defaultQueueCapacity)
	}
	if cfg.Workers != defaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Workers, defaultWorkers)
	}
	if cfg.JobTTL != defaultJobTTL {
		t.Errorf("JobTTL = %v, want %v", cfg.JobTTL, defaultJobTTL)
	}
	if cfg.HistoryPath != "" {
		t.Errorf("HistoryPath = %q, want empty", cfg.HistoryPath)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
	if cfg.EventsChannel != defaultEventsChannel {
		t.Errorf("EventsChannel = %q, want %q", cfg.EventsChannel, defaultEventsChannel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envQueueCapacity, "5")
	t.Setenv(envWorkers, "3")
	t.Setenv(envJobTTL, "10m")
	t.Setenv(envHistoryPath, "/tmp/history.db")
	t.Setenv(envRedisURL, "redis://localhost:6379/0")
	t.Setenv(envEventsChannel, "custom.channel")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.QueueCapacity != 5 {
		t.Errorf("QueueCapacity = %d, want 5", cfg.QueueCapacity)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.JobTTL != 10*time.Minute {
		t.Errorf("JobTTL = %v, want 10m", cfg.JobTTL)
	}
	if cfg.HistoryPath != "/tmp/history.db" {
		t.Errorf("HistoryPath = %q, want /tmp/history.db", cfg.HistoryPath)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q, want redis://localhost:6379/0", cfg.RedisURL)
	}
	if cfg.EventsChannel != "custom.channel" {
		t.Errorf("EventsChannel = %q, want custom.channel", cfg.EventsChannel)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(envQueueCapacity, "not-a-number")
	t.Setenv(envWorkers, "-2")
	t.Setenv(envJobTTL, "tomorrow")

	cfg := Load()

	if cfg.QueueCapacity != defaultQueueCapacity {
		t.Errorf("QueueCapacity = %d, want default %d", cfg.QueueCapacity, defaultQueueCapacity)
	}
	if cfg.Workers != defaultWorkers {
		t.Errorf("Workers = %d, want default %d", cfg.Workers, defaultWorkers)
	}
	if cfg.JobTTL != defaultJobTTL {
		t.Errorf("JobTTL = %v, want default %v", cfg.JobTTL, defaultJobTTL)
	}
}

func TestJobTTLZeroDisables(t *testing.T) {
	clearEnv(t)
	t.Setenv(envJobTTL, "0s")

	cfg := Load()
	if cfg.JobTTL != 0 {
		t.Errorf("JobTTL = %v, want 0", cfg.JobTTL)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := parseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr    = ":7101"
	defaultQueueCapacity = 100
	defaultWorkers       = 1
	defaultJobTTL        = time.Hour
	defaultEventsChannel = "sedsvc.jobs"

	envListenAddr    = "SEDSVC_LISTEN_ADDR"
	envLogLevel      = "SEDSVC_LOG_LEVEL"
	envQueueCapacity = "SEDSVC_QUEUE_CAPACITY"
	envWorkers       = "SEDSVC_WORKERS"
	envJobTTL        = "SEDSVC_JOB_TTL"
	envHistoryPath   = "SEDSVC_HISTORY_PATH"
	envRedisURL      = "SEDSVC_REDIS_URL"
	envEventsChannel = "SEDSVC_EVENTS_CHANNEL"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	LogLevel      slog.Level
	QueueCapacity int
	Workers       int

	// JobTTL is how long terminal job entries stay pollable before
	// eviction. Zero keeps them for the process lifetime.
	JobTTL time.Duration

	// HistoryPath is the SQLite file for the transformation archive.
	// Empty disables archiving.
	HistoryPath string

	// RedisURL enables completion-event publication when set.
	RedisURL      string
	EventsChannel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:    defaultListenAddr,
		LogLevel:      slog.LevelInfo,
		QueueCapacity: defaultQueueCapacity,
		Workers:       defaultWorkers,
		JobTTL:        defaultJobTTL,
		EventsChannel: defaultEventsChannel,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envQueueCapacity); v != "" {
		cfg.QueueCapacity = parsePositiveInt(v, defaultQueueCapacity)
	}
	if v := os.Getenv(envWorkers); v != "" {
		cfg.Workers = parsePositiveInt(v, defaultWorkers)
	}
	if v := os.Getenv(envJobTTL); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.JobTTL = d
		}
	}
	if v := os.Getenv(envHistoryPath); v != "" {
		cfg.HistoryPath = v
	}
	if v := os.Getenv(envRedisURL); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv(envEventsChannel); v != "" {
		cfg.EventsChannel = v
	}

	return cfg
}

func parsePositiveInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

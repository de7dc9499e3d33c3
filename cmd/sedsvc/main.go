package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fusepool/sedsvc/internal/api"
	"github.com/fusepool/sedsvc/internal/config"
	"github.com/fusepool/sedsvc/internal/engine"
	"github.com/fusepool/sedsvc/internal/events"
	"github.com/fusepool/sedsvc/internal/history"
	"github.com/fusepool/sedsvc/internal/registry"
	"github.com/fusepool/sedsvc/internal/transform/sed"
)

const sweepInterval = time.Minute

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("sedsvc: starting",
		"listen_addr", cfg.ListenAddr,
		"queue_capacity", cfg.QueueCapacity,
		"workers", cfg.Workers,
		"job_ttl", cfg.JobTTL.String(),
	)

	transformer := sed.New()
	reg := registry.New(cfg.JobTTL)

	opts := engine.Options{
		QueueCapacity: cfg.QueueCapacity,
		Workers:       cfg.Workers,
	}
	if cfg.JobTTL > 0 {
		opts.SweepInterval = sweepInterval
	}
	eng := engine.New(opts, reg, transformer, logger)

	var sink engine.Sink = engine.NewRegistrySink(reg)

	var archive history.Archive
	if cfg.HistoryPath != "" {
		sqlArchive, err := history.NewSQLiteArchive(cfg.HistoryPath)
		if err != nil {
			log.Fatalf("failed to open history archive: %v", err)
		}
		defer sqlArchive.Close()
		archive = sqlArchive
		sink = history.NewSink(sink, reg, archive, logger)
		logger.Info("history archive enabled", "path", cfg.HistoryPath)
	}

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := events.Dial(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer client.Close()
		sink = events.NewSink(sink, client, cfg.EventsChannel, logger)
		logger.Info("event publication enabled", "channel", cfg.EventsChannel)
	}

	if err := eng.Activate(sink); err != nil {
		log.Fatalf("failed to activate engine: %v", err)
	}
	defer eng.Shutdown()

	// A worker loop fault means jobs can sit in the backlog forever.
	// Crash loudly and let the supervisor restart us.
	go func() {
		fault := <-eng.Faults()
		logger.Error("worker loop fault, exiting", "error", fault)
		os.Exit(1)
	}()

	srv := api.NewServer(cfg.ListenAddr, eng, transformer, archive, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

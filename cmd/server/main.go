// Package main is the entry point for the statements engine: a tiered cache
// and earnings-gated refresh service for financial statement series.
//
// Startup sequence:
//  1. Load configuration from environment variables (.env supported)
//  2. Initialize structured logging
//  3. Open the durable store backend (sqlite, filesystem, or S3)
//  4. Wire clients, earnings gate, event bus, and the cache coordinator
//  5. Register the scheduled batch refresh job
//  6. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/statements/internal/cache"
	"github.com/aristath/statements/internal/clients/earningscal"
	"github.com/aristath/statements/internal/clients/provider"
	"github.com/aristath/statements/internal/config"
	"github.com/aristath/statements/internal/events"
	"github.com/aristath/statements/internal/scheduler"
	"github.com/aristath/statements/internal/server"
	"github.com/aristath/statements/internal/statements"
	"github.com/aristath/statements/internal/storage"
	"github.com/aristath/statements/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("backend", cfg.StoreBackend).Msg("Starting statements engine")

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open durable store")
	}
	defer closeStore()

	providerClient := provider.NewClient(cfg.ProviderBaseURL, cfg.FetchTimeout, log)
	calendarClient := earningscal.NewClient(cfg.CalendarBaseURL, 3*time.Second, log)
	gate := earningscal.NewGate(calendarClient, cfg.EarningsCacheTTL, log)
	bus := events.NewBus(log)

	coordinator := statements.NewCoordinator(statements.Config{
		L1:               cache.NewL1(cfg.L1HitTTL, cfg.L1MissTTL),
		Store:            store,
		Fetcher:          providerClient,
		Gate:             gate,
		Bus:              bus,
		FetchTimeout:     cfg.FetchTimeout,
		MaxStalenessDays: cfg.MaxStalenessDays,
		Log:              log,
	})

	sched := scheduler.New(log)
	if cfg.RefreshSchedule != "" {
		job := scheduler.NewBatchRefreshJob(coordinator, cfg.DefaultTickers, log)
		if err := sched.AddJob(cfg.RefreshSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("Failed to register batch refresh job")
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:         log,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Coordinator: coordinator,
		Bus:         bus,
		DataDir:     cfg.DataDir,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	sched.Stop()
	log.Info().Msg("Shutdown complete")
}

// openStore builds the configured durable backend. The returned func releases
// whatever the backend holds open.
func openStore(cfg *config.Config, log zerolog.Logger) (storage.SeriesStore, func(), error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := storage.Open(filepath.Join(cfg.DataDir, "statements.db"))
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	case "fs":
		blobs, err := storage.NewFSBlobStore(filepath.Join(cfg.DataDir, "statements"))
		if err != nil {
			return nil, nil, err
		}
		return storage.NewBlobSeriesStore(blobs), func() {}, nil

	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		blobs, err := storage.NewS3BlobStore(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewBlobSeriesStore(blobs), func() {}, nil
	}
	return nil, nil, errors.New("unknown store backend " + cfg.StoreBackend)
}

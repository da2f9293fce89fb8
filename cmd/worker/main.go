package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storyreel/internal/adapter/repo"
	"storyreel/internal/infra"
	"storyreel/internal/pipeline"
	"storyreel/internal/publish"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("worker: configuration invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	jobs := repo.NewStoryJobRepository(infra.NewSQLRunner(pool, &logger))
	if err := jobs.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: ensure schema failed")
	}

	orchestrator, err := pipeline.FromConfig(cfg, &logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: pipeline configuration failed")
	}

	w := &jobWorker{
		jobs:     jobs,
		pipeline: orchestrator,
		logger:   &logger,
		poll:     cfg.WorkerPoll,
		mode:     cfg.NarrationMode,
	}
	if cfg.Minio.Enabled() {
		uploader, err := publish.NewMinioUploader(cfg.Minio, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: minio configuration failed")
		}
		w.uploader = uploader
	} else {
		logger.Info().Msg("worker: minio not configured, videos stay on local disk")
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

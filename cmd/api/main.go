package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storyreel/internal/adapter/repo"
	"storyreel/internal/http/handlers"
	httpapi "storyreel/internal/http/httpapi"
	"storyreel/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("api: configuration invalid")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	jobs := repo.NewStoryJobRepository(infra.NewSQLRunner(dbpool, &logger))
	if err := jobs.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure story_jobs schema")
	}

	app := handlers.NewApp(jobs, dbpool, &logger)
	router := httpapi.NewRouter(app, &logger, httpapi.Options{
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.AllowedOrigins,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

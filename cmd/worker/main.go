// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
	"library-backend/pkg/container"
	"library-backend/pkg/logger"
	"library-backend/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("[Config] invalid worker configuration")
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	providers, err := telemetry.Setup(context.Background(), "library-worker", cfg.App.Version, cfg.OTel)
	if err != nil {
		log.Fatal().Err(err).Msg("[OTEL] failed to set up telemetry")
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("[Container] failed to initialize")
	}
	defer c.Cleanup()

	monitorCtx, stopMonitors := context.WithCancel(context.Background())
	defer stopMonitors()
	c.StartMonitors(monitorCtx)

	if err := startServices(cfg, c); err != nil {
		log.Fatal().Err(err).Msg("[Startup] health check failed")
	}

	handlers := initializeHandlers(c)
	srv := setupAsynqServer(cfg, handlers)
	scheduler := setupScheduler(cfg)

	waitForShutdown(srv, scheduler)
}

func waitForShutdown(srv *asynqServer, scheduler *asynqScheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("[Shutdown] gracefully stopping")
	scheduler.Shutdown()
	srv.Shutdown()
	log.Info().Msg("[Shutdown] stopped")
}

// loadConfig is config.Load plus the worker's own requirements: discrepancies
// live in Postgres and tasks in Redis, so neither can be in-process.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := validateWorkerConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

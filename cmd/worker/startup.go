// cmd/worker/startup.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
	"library-backend/pkg/container"
)

const healthAddr = ":9999"

// startServices checks dependencies once and starts the health endpoint.
func startServices(cfg *config.Config, c *container.Container) error {
	log.Info().
		Str("queue", "lending").
		Str("audit_cron", cfg.Jobs.AuditCron).
		Msg("library worker starting")

	if c.Redis == nil {
		return fmt.Errorf("redis: not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for name, state := range c.HealthCheck(ctx) {
		if state != "ok" {
			return fmt.Errorf("%s: %s", name, state)
		}
		log.Info().Str("check", name).Msg("health check passed")
	}

	go startHealthCheckServer(c)
	return nil
}

// startHealthCheckServer serves /health (liveness) and /ready (dependencies).
func startHealthCheckServer(c *container.Container) {
	router := gin.New()
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "UP", "service": "library-worker"})
	})
	router.GET("/ready", func(ctx *gin.Context) {
		checks := c.HealthCheck(ctx.Request.Context())
		for _, state := range checks {
			if state != "ok" {
				ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "checks": checks})
				return
			}
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "READY", "checks": checks})
	})

	log.Info().Str("addr", healthAddr).Msg("[Health] starting health check server")
	if err := router.Run(healthAddr); err != nil {
		log.Error().Err(err).Msg("[Health] failed to start")
	}
}

package main

import (
	"fmt"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
)

func validateWorkerConfig(cfg *config.Config) error {
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		return fmt.Errorf("worker needs STORAGE_DRIVER=%s, got %q", config.StorageDriverPostgres, cfg.Storage.Driver)
	}
	if !cfg.Redis.Enabled {
		return fmt.Errorf("worker needs REDIS_ENABLED=true")
	}
	return nil
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"library-backend/internal/config"
)

func Test_validateWorkerConfig(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: config.StorageDriverPostgres},
		Redis:   config.RedisConfig{Host: "localhost:6379", Enabled: true},
	}
	assert.NoError(t, validateWorkerConfig(cfg))
	assert.Equal(t, "localhost:6379", redisOpt(cfg).Addr)

	cfg.Storage.Driver = config.StorageDriverMemory
	assert.Error(t, validateWorkerConfig(cfg))

	cfg.Storage.Driver = config.StorageDriverPostgres
	cfg.Redis.Enabled = false
	assert.Error(t, validateWorkerConfig(cfg))
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"

	lendingRepo "library-backend/internal/domains/lending/repository"
	lendingService "library-backend/internal/domains/lending/service"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/pkg/cache"
)

// withDB opens the configured database for the duration of fn.
func withDB(ctx context.Context, fn func(db *sqlx.DB) error) error {
	db, err := sqlx.Open("postgres", cfg.GetString(cfgKeyDSN))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	return fn(db)
}

// withDiscrepancyService builds the same discrepancy service the API and the
// worker run, so stock corrections go through the ledger and invalidate the
// catalog cache. An empty redis-addr means the deployment runs without Redis.
func withDiscrepancyService(ctx context.Context, fn func(svc lendingService.DiscrepancyServiceInterface) error) error {
	pool, err := pgxpool.New(ctx, cfg.GetString(cfgKeyDSN))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	var catalogCache cache.Cache
	if addr := cfg.GetString(cfgKeyRedisAddr); addr != "" {
		redis := infraCache.NewRedisCache(addr, cfg.GetString(cfgKeyRedisPassword), cfg.GetInt(cfgKeyRedisDB))
		if err := redis.Connect(pingCtx); err != nil {
			_ = redis.Close()
			return fmt.Errorf("connect redis %s: %w (pass --%s= when the service runs without Redis)", addr, err, cfgKeyRedisAddr)
		}
		defer redis.Close()
		catalogCache = redis
	}

	svc := lendingService.NewDiscrepancyService(
		lendingRepo.NewPostgresDiscrepancyRepository(pool),
		lendingRepo.NewPostgresTxRunner(pool, catalogCache),
	)
	return fn(svc)
}

// redisClientOpt is the asynq connection for the configured Redis.
func redisClientOpt(v *viper.Viper) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     v.GetString(cfgKeyRedisAddr),
		Password: v.GetString(cfgKeyRedisPassword),
		DB:       v.GetInt(cfgKeyRedisDB),
	}
}

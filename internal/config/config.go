package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	LendingModeSaga          = "saga"
	LendingModeTransactional = "transactional"

	minJWTSecretLength = 32
	devJWTSecret       = "dev-secret-change-me-dev-secret-change-me"
)

// Config holds the application configuration populated from environment variables.
type Config struct {
	App     AppConfig
	Storage StorageConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Lending LendingConfig
	Auth    AuthConfig
	Catalog CatalogConfig
	Jobs    JobConfig
	OTel    OTelConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
}

type StorageConfig struct {
	Driver string // postgres or memory
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
	Enabled  bool
}

type JWTConfig struct {
	Secret   string
	ExpHours int
}

// Expiry returns the access token lifetime.
func (j JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpHours) * time.Hour
}

type LendingConfig struct {
	Mode                string
	CompensationTimeout time.Duration
}

type AuthConfig struct {
	LoginMaxAttempts int
	LoginLockout     time.Duration
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

// OTelConfig enables OTLP export of traces and metrics. An empty endpoint
// leaves the otel globals as no-ops.
type OTelConfig struct {
	Endpoint       string
	Insecure       bool
	MetricInterval time.Duration
}

type JobConfig struct {
	AuditCron  string
	AuditLimit int
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Library API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", devJWTSecret),
			ExpHours: getEnvInt("JWT_EXP_HOURS", 24),
		},
		Lending: LendingConfig{
			Mode:                strings.ToLower(getEnv("LENDING_MODE", LendingModeSaga)),
			CompensationTimeout: getEnvDuration("LENDING_COMPENSATION_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginLockout:     getEnvDuration("LOGIN_LOCKOUT", 15*time.Minute),
		},
		Catalog: CatalogConfig{
			CacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
		Jobs: JobConfig{
			AuditCron:  getEnv("AUDIT_CRON", "*/15 * * * *"),
			AuditLimit: getEnvInt("AUDIT_LIMIT", 100),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:       getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			MetricInterval: getEnvDuration("OTEL_METRIC_EXPORT_INTERVAL", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.Storage.Driver)
	}

	switch c.Lending.Mode {
	case LendingModeSaga, LendingModeTransactional:
	default:
		return fmt.Errorf("LENDING_MODE must be %q or %q, got %q", LendingModeSaga, LendingModeTransactional, c.Lending.Mode)
	}

	if c.JWT.ExpHours <= 0 {
		return fmt.Errorf("JWT_EXP_HOURS must be positive")
	}
	if c.Lending.CompensationTimeout <= 0 {
		return fmt.Errorf("LENDING_COMPENSATION_TIMEOUT must be positive")
	}
	if c.OTel.Endpoint != "" && c.OTel.MetricInterval <= 0 {
		return fmt.Errorf("OTEL_METRIC_EXPORT_INTERVAL must be positive")
	}
	if c.Auth.LoginMaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive")
	}

	if c.App.Environment != "development" {
		if c.JWT.Secret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set outside development")
		}
		if len(c.JWT.Secret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

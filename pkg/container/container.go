package container

import (
	"context"
	"fmt"
	"time"

	"library-backend/internal/config"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/infrastructure/memory"
	"library-backend/pkg/cache"
	"library-backend/pkg/jwt"
	"library-backend/pkg/logger"

	bookHandler "library-backend/internal/domains/book/handler"
	bookRepo "library-backend/internal/domains/book/repository"
	bookService "library-backend/internal/domains/book/service"

	userHandler "library-backend/internal/domains/user/handler"
	userRepo "library-backend/internal/domains/user/repository"
	userService "library-backend/internal/domains/user/service"

	lendingHandler "library-backend/internal/domains/lending/handler"
	lendingRepo "library-backend/internal/domains/lending/repository"
	lendingService "library-backend/internal/domains/lending/service"
)

const poolMonitorInterval = time.Minute

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph shared by the API and the worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config     *config.Config
	DB         *database.PostgresDB // nil with the memory driver
	Store      *memory.Store        // nil with the postgres driver
	Redis      *infraCache.RedisCache
	Cache      cache.Cache // login throttling; Redis when reachable, in-process otherwise
	JWTManager *jwt.Manager

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	BookRepo        bookRepo.RepositoryInterface
	UserRepo        userRepo.RepositoryInterface
	DiscrepancyRepo lendingRepo.DiscrepancyRepository
	TxRunner        lendingRepo.TxRunner

	// ========================================
	// SERVICE LAYER
	// ========================================
	BookService        bookService.ServiceInterface
	UserService        userService.ServiceInterface
	Coordinator        *lendingService.Coordinator
	DiscrepancyService lendingService.DiscrepancyServiceInterface

	// ========================================
	// HANDLER LAYER
	// ========================================
	BookHandler    *bookHandler.BookHandler
	UserHandler    *userHandler.UserHandler
	LendingHandler *lendingHandler.LendingHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the graph in dependency order:
// config, infrastructure, repositories, services, handlers.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	// STEP 1: CACHE
	if err := c.initCache(); err != nil {
		return nil, err
	}

	// STEP 2: STORAGE + REPOSITORIES
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		if err := c.initPostgres(); err != nil {
			return nil, err
		}
	case config.StorageDriverMemory:
		c.initMemory()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	// STEP 3: SERVICES
	if err := c.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// STEP 4: HANDLERS
	c.initHandlers()

	logger.Info("DI container initialized", map[string]interface{}{
		"storage":      cfg.Storage.Driver,
		"lending_mode": c.Coordinator.Mode(),
		"redis":        c.Redis != nil,
	})
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initCache() error {
	c.JWTManager = jwt.NewManager(c.Config.JWT.Secret, c.Config.JWT.Expiry())

	if !c.Config.Redis.Enabled {
		c.Cache = memory.NewCache()
		return nil
	}

	redisCache := infraCache.NewRedisCache(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisCache.Connect(ctx); err != nil {
		// Redis is not critical: catalog reads go to storage and login
		// throttling falls back to this process.
		logger.Warn("Redis connection failed, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
		_ = redisCache.Close()
		c.Cache = memory.NewCache()
		return nil
	}

	c.Redis = redisCache
	c.Cache = redisCache
	return nil
}

func (c *Container) initPostgres() error {
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db

	// The catalog cache is only shared state when it lives in Redis.
	var catalogCache cache.Cache
	if c.Redis != nil {
		catalogCache = c.Redis
	}

	c.BookRepo = bookRepo.NewPostgresRepository(db.Pool, catalogCache, c.Config.Catalog.CacheTTL)
	c.UserRepo = userRepo.NewPostgresRepository(db.Pool)
	c.DiscrepancyRepo = lendingRepo.NewPostgresDiscrepancyRepository(db.Pool)
	c.TxRunner = lendingRepo.NewPostgresTxRunner(db.Pool, catalogCache)
	return nil
}

func (c *Container) initMemory() {
	store := memory.New()
	c.Store = store

	c.BookRepo = store.Books()
	c.UserRepo = store.Users()
	c.DiscrepancyRepo = store.Discrepancies()
	c.TxRunner = store

	logger.Warn("Using in-memory storage; data is lost on restart", nil)
}

func (c *Container) initServices() error {
	c.BookService = bookService.NewBookService(c.BookRepo)

	c.UserService = userService.NewUserService(
		c.UserRepo,
		c.BookRepo,
		c.JWTManager,
		c.Cache,
		userService.Options{
			LoginMaxAttempts: c.Config.Auth.LoginMaxAttempts,
			LoginLockout:     c.Config.Auth.LoginLockout,
		},
	)

	coordinator, err := lendingService.NewCoordinator(
		lendingService.Config{
			Mode:                c.Config.Lending.Mode,
			CompensationTimeout: c.Config.Lending.CompensationTimeout,
		},
		c.BookRepo,
		c.UserRepo,
		c.DiscrepancyRepo,
		c.TxRunner,
	)
	if err != nil {
		return err
	}
	c.Coordinator = coordinator

	c.DiscrepancyService = lendingService.NewDiscrepancyService(c.DiscrepancyRepo, c.TxRunner)
	return nil
}

func (c *Container) initHandlers() {
	c.BookHandler = bookHandler.NewBookHandler(c.BookService)
	c.UserHandler = userHandler.NewUserHandler(c.UserService)
	c.LendingHandler = lendingHandler.NewLendingHandler(c.Coordinator, c.DiscrepancyService)
}

// ========================================
// HELPER METHODS
// ========================================

const healthUnavailable = "unavailable"

// HealthCheck pings storage and, when configured, Redis. Values are "ok" or
// "unavailable"; driver errors are only logged.
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"storage": "ok"}

	if c.DB != nil {
		if err := c.DB.HealthCheck(ctx); err != nil {
			logger.Error("Storage health check failed", err)
			status["storage"] = healthUnavailable
		}
	}
	if c.Redis != nil {
		status["redis"] = "ok"
		if err := c.Redis.Ping(ctx); err != nil {
			logger.Error("Redis health check failed", err)
			status["redis"] = healthUnavailable
		}
	}
	return status
}

// StartMonitors runs background pool monitoring until ctx is cancelled.
func (c *Container) StartMonitors(ctx context.Context) {
	if c.DB != nil {
		go c.DB.MonitorPoolHealth(ctx, poolMonitorInterval)
	}
}

// Cleanup releases connections during graceful shutdown.
func (c *Container) Cleanup() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("Failed to close Redis", err)
		}
	}

	logger.Info("Container cleanup completed", nil)
}

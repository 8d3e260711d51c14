package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	httpAdapter "github.com/fxledger/fxledger/internal/adapter/http"
	"github.com/fxledger/fxledger/internal/adapter/http/handler"
	"github.com/fxledger/fxledger/internal/adapter/http/middleware"
	postgresRepo "github.com/fxledger/fxledger/internal/adapter/repository/postgres"
	redisRepo "github.com/fxledger/fxledger/internal/adapter/repository/redis"
	"github.com/fxledger/fxledger/internal/infrastructure/config"
	"github.com/fxledger/fxledger/internal/infrastructure/logger"
	"github.com/fxledger/fxledger/internal/infrastructure/metrics"
	"github.com/fxledger/fxledger/internal/infrastructure/postgres"
	redisInfra "github.com/fxledger/fxledger/internal/infrastructure/redis"
	"github.com/fxledger/fxledger/internal/lockmgr"
	"github.com/fxledger/fxledger/internal/ratecache"
	"github.com/fxledger/fxledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, migrationsPath(), log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis is optional. Without it the engine uses in-process locks
	// and skips request idempotency and the shared rate cache.
	var (
		locker           lockmgr.Locker
		sharedCache      usecase.SharedCache
		idempotencyStore usecase.IdempotencyStore
	)
	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		locker = lockmgr.NewRedisLocker(redisClient, cfg.LockPollInterval, cfg.LockAcquireTimeout, cfg.LockTTL)
		sharedCache = redisRepo.NewCache(redisClient)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	} else {
		log.Info().Msg("redis disabled, using in-process locks")
		locker = lockmgr.NewManager(cfg.LockPollInterval, cfg.LockAcquireTimeout)
	}

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool, postgresRepo.NewRetrier(log))
	assetRepo := postgresRepo.NewAssetRepository(pool)
	rateRepo := postgresRepo.NewRateRepository(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	postingRepo := postgresRepo.NewPostingRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	m := metrics.New()
	cache := ratecache.New(cfg.RateCacheTTL, cfg.RateCacheSize)

	// Initialize use cases
	rateUC := usecase.NewRateService(rateRepo, assetRepo, cache, sharedCache, usecase.RateConfig{
		BaseAsset:    cfg.BaseAsset,
		AllowReverse: cfg.RateAllowReverse,
		AllowCross:   cfg.RateAllowCross,
	}, m, log)
	balanceUC := usecase.NewBalanceService(accountRepo, assetRepo, postingRepo, rateUC)
	assetUC := usecase.NewAssetService(assetRepo, cache, log)
	accountUC := usecase.NewAccountService(accountRepo, assetRepo, postingRepo, txManager, idGen, m, log)
	engine := usecase.NewEngine(accountRepo, assetRepo, postingRepo, txManager, idGen, locker,
		rateUC, balanceUC, usecase.EngineConfig{
			KeepIntegrity:         cfg.KeepIntegrity,
			FullTransactionUpdate: cfg.FullTransactionUpdate,
		}, m, log)

	// Initialize handlers
	assetHandler := handler.NewAssetHandler(assetUC)
	rateHandler := handler.NewRateHandler(rateUC)
	accountHandler := handler.NewAccountHandler(accountUC, balanceUC)
	postingHandler := handler.NewPostingHandler(engine, postingRepo)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		log.Info().
			Float64("rps", cfg.RateLimitRPS).
			Int("burst", cfg.RateLimitBurst).
			Msg("per-client rate limiting enabled")
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AssetHandler:     assetHandler,
		RateHandler:      rateHandler,
		AccountHandler:   accountHandler,
		PostingHandler:   postingHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Logger:           log,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return redisInfra.NewClient(ctx, cfg.RedisURL)
}

// migrationsPath resolves the migrations directory, overridable for
// containerized deployments.
func migrationsPath() string {
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		return path
	}
	return "migrations"
}

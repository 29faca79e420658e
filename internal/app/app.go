package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/api"
	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/config"
	"github.com/ayo6706/wallet-ledger/internal/db"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/events/kafka"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/rates"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/ayo6706/wallet-ledger/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// cache stays a nil interface when Redis is not configured.
	var cache redis.Cmdable
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		cache = redisClient
	} else {
		logger.Warn("REDIS_URL not set, running without idempotency and rate caches")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("publishing ledger events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	staticRates, err := newRateTable(cfg)
	if err != nil {
		return fmt.Errorf("load rates: %w", err)
	}
	rateProvider := rates.NewCachedProvider(staticRates, cache, cfg.RateCacheTTL)

	store := repository.NewStore(pool, cfg.StoreTimeout)
	idemStore := idempotency.NewStore(cache, store.Queries(), cfg.IdempotencyTTL)

	ledgerSvc := service.NewLedgerService(store, publisher)
	accountSvc := service.NewAccountService(store, cfg.ReferenceCurrency)
	orderSvc := service.NewOrderService(store, ledgerSvc, publisher)
	depositSvc := service.NewDepositService(store, ledgerSvc, rateProvider, publisher,
		service.WithReferenceCurrency(cfg.ReferenceCurrency),
		service.WithRateTimeout(cfg.RateTimeout),
	)
	withdrawalSvc := service.NewWithdrawalService(store, ledgerSvc, publisher)
	reconciliationSvc := service.NewReconciliationService(store)

	stopReconciliation := worker.NewReconciliationWorker(reconciliationSvc).
		WithInterval(cfg.ReconciliationInterval).
		Run(ctx)
	stopRateRefresh := worker.NewRateRefreshWorker(staticRates, rateProvider).
		WithInterval(cfg.RateRefreshInterval).
		Run(ctx)
	stopSweeper := worker.NewIdempotencySweeper(idemStore).Run(ctx)
	logger.Info("workers started",
		zap.Duration("reconciliation_interval", cfg.ReconciliationInterval),
		zap.Duration("rate_refresh_interval", cfg.RateRefreshInterval),
	)

	router := api.NewRouter(cfg, logger, api.Dependencies{
		DB:             pool,
		Redis:          cache,
		Idempotency:    idemStore,
		Rates:          rateProvider,
		RateTimeout:    cfg.RateTimeout,
		Accounts:       accountSvc,
		Ledger:         ledgerSvc,
		Orders:         orderSvc,
		Deposits:       depositSvc,
		Withdrawals:    withdrawalSvc,
		Reconciliation: reconciliationSvc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopReconciliation()
	stopRateRefresh()
	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// newRateTable loads RATES_FILE when set, otherwise the built-in table.
func newRateTable(cfg *config.Config) (*rates.StaticProvider, error) {
	if cfg.RatesFile != "" {
		return rates.LoadFile(cfg.RatesFile, cfg.ReferenceCurrency)
	}
	zap.L().Warn("RATES_FILE not set, using built-in exchange rates")
	return rates.NewStaticProvider(cfg.ReferenceCurrency, rates.DefaultRates)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"vertx-trading/config"
	"vertx-trading/internal/api"
	"vertx-trading/internal/auth"
	"vertx-trading/internal/cache"
	"vertx-trading/internal/database"
	"vertx-trading/internal/events"
	"vertx-trading/internal/history"
	"vertx-trading/internal/inference"
	"vertx-trading/internal/integrity"
	"vertx-trading/internal/logging"
	"vertx-trading/internal/market"
	"vertx-trading/internal/redemption"
	"vertx-trading/internal/scheduler"
	signalengine "vertx-trading/internal/signal"
	"vertx-trading/internal/subscription"
	"vertx-trading/internal/vault"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// Initialize event bus
	eventBus := events.NewEventBus()
	logger.Info("Event bus initialized")

	// Initialize database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run database migrations
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repo := database.NewRepository(db)

	// Secrets: Vault when enabled, env-provided config otherwise
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		log.Fatalf("Failed to create vault client: %v", err)
	}
	vaultClient.SetFallback(vault.KeyJWTSecret, cfg.AuthConfig.JWTSecret)
	vaultClient.SetFallback(vault.KeyInferenceAPIKey, cfg.InferenceConfig.APIKey)

	jwtSecret, err := vaultClient.Secret(ctx, vault.KeyJWTSecret)
	if err != nil {
		log.Fatalf("Failed to resolve JWT secret: %v", err)
	}
	cfg.AuthConfig.JWTSecret = jwtSecret
	if key, err := vaultClient.Secret(ctx, vault.KeyInferenceAPIKey); err == nil {
		cfg.InferenceConfig.APIKey = key
	}

	// Redis-backed integrity store with in-memory fallback
	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using in-memory integrity store")
			cacheService = nil
		}
	}
	watermarks := cache.NewWatermarkStore(cacheService)

	// Time integrity monitor
	monitor := integrity.NewMonitor(cfg.IntegrityConfig, watermarks, eventBus)

	// Simulated market feed
	feed := market.NewFeed(market.DefaultAssets, market.FeedConfig{
		TickInterval: cfg.FeedConfig.TickInterval,
		WindowSize:   cfg.FeedConfig.WindowSize,
	}, eventBus)
	feed.Start(ctx)
	logger.Info("Market feed started")

	// Subscription ledger and background pollers
	ledger := subscription.NewLedger(repo, cfg.SubscriptionConfig, cfg.FeedConfig.FreeAsset, eventBus)
	pollers := subscription.NewPollers(ledger, repo, cfg.SubscriptionConfig, monitor)
	pollers.Start(ctx)

	// Analysis pipeline
	engine := signalengine.NewEngine()
	analyzer := inference.NewAnalyzer(cfg.InferenceConfig, engine)
	historySvc := history.NewService(repo, eventBus)

	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	sched := scheduler.New(feed, analyzer, ledger, monitor, historySvc, eventBus, zl)

	// Auth and redemption
	authService := auth.NewService(repo, cfg.AuthConfig, cfg.SubscriptionConfig, cfg.FeedConfig.FreeAsset, eventBus)
	redemptionSvc := redemption.NewService(repo, ledger)

	// HTTP server
	server := api.NewServer(
		cfg.ServerConfig,
		repo,
		eventBus,
		authService,
		ledger,
		redemptionSvc,
		sched,
		historySvc,
		monitor,
		feed,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
	}()

	logger.WithField("port", cfg.ServerConfig.Port).Info("Service started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error shutting down web server")
	}
	if cacheService != nil {
		cacheService.Close()
	}

	logger.Info("Shutdown complete")
}

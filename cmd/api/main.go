package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stablecoin-gateway/config"
	"stablecoin-gateway/internal/adapter/chain"
	httpHandler "stablecoin-gateway/internal/adapter/http/handler"
	pgStorage "stablecoin-gateway/internal/adapter/storage/postgres"
	redisStorage "stablecoin-gateway/internal/adapter/storage/redis"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/internal/service"
	"stablecoin-gateway/internal/worker"
	"stablecoin-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Stablecoin Payment Gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize blockchain clients
	chainClient, err := chain.NewEVMChainClient(cfg.Chain)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to blockchain RPC")
	}
	defer chainClient.Close()
	log.Info().Int("networks", len(cfg.Chain.Networks)).Msg("Blockchain RPC connected")

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	deliveryRepo := pgStorage.NewWebhookDeliveryRepo(pool)

	// Initialize Redis stores
	paymentCache := redisStorage.NewPaymentCache(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Confirmation depth per network
	depths := make(map[domain.Network]int, len(cfg.Chain.Networks))
	for name, nc := range cfg.Chain.Networks {
		depths[domain.Network(name)] = nc.ConfirmationDepth
	}

	// Initialize business services
	authSvc := service.NewAuthService(merchantRepo, hashSvc, encSvc, tokenSvc)
	queue := service.NewDurableWebhookQueue(deliveryRepo, cfg.Webhook)
	paymentSvc := service.NewPaymentLifecycleManager(
		paymentRepo,
		deliveryRepo,
		queue,
		paymentCache,
		cfg.Payment,
		depths,
		log,
	)
	merchantSvc := service.NewMerchantService(merchantRepo, encSvc)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Background workers
	watcher := worker.NewConfirmationWatcher(paymentSvc, paymentRepo, chainClient, cfg.Chain, log)
	reaper := worker.NewExpiryReaper(paymentSvc, paymentRepo, config.ExpirySweepInterval, cfg.Chain.BatchSize, log)
	dispatcher := worker.NewWebhookDispatcher(
		deliveryRepo,
		merchantRepo,
		encSvc,
		sigSvc,
		&http.Client{Timeout: cfg.Webhook.HTTPTimeout},
		cfg.Webhook,
		log,
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); watcher.Run(ctx) }()
	go func() { defer wg.Done(); reaper.Run(ctx) }()
	go func() { defer wg.Done(); dispatcher.Run(ctx) }()

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		PaymentSvc:     paymentSvc,
		MerchantSvc:    merchantSvc,
		MerchantRepo:   merchantRepo,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop workers and wait for in-flight work to drain
	cancel()
	wg.Wait()

	log.Info().Msg("Server exited")
}

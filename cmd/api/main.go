package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repairshop/internal/checkout"
	"repairshop/internal/config"
	"repairshop/internal/database"
	"repairshop/internal/handler"
	"repairshop/internal/lock"
	"repairshop/internal/metrics"
	"repairshop/internal/notification"
	"repairshop/internal/payment"
	"repairshop/internal/repository"
	"repairshop/internal/router"
	"repairshop/internal/service"
	"repairshop/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting repairshop API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	readyChecks := map[string]func(context.Context) error{
		"postgres": pool.Ping,
	}

	// Lock and webhook dedupe store: Redis when enabled, process memory otherwise
	var lockStore lock.Store
	if cfg.Redis.Enabled {
		redisClient, err := lock.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redisClient.Close()
		lockStore = lock.NewRedisStore(redisClient)
		readyChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	} else {
		lockStore = lock.NewMemoryStore()
		logger.Warn().Msg("redis disabled, order locks and webhook dedupe are process-local")
	}

	locker, err := lock.NewLocker(lockStore, cfg.Redis.KeyPrefix, cfg.Redis.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize order locker: %w", err)
	}
	webhookGuard, err := lock.NewIdempotencyGuard(lockStore, cfg.Redis.DedupeTTL, cfg.Redis.KeyPrefix, "stripe")
	if err != nil {
		return fmt.Errorf("failed to initialize webhook guard: %w", err)
	}

	// Initialize label storage with S3 and local fallback
	fileStore := storage.NewFileStore(cfg.Storage.LocalDir, logger)
	labelStore := fileStore
	if cfg.Storage.S3Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 label store, falling back to local file system only")
		} else {
			labelStore = storage.NewFallbackStore(s3Store, fileStore, cfg.Storage.Prefix, true, logger)
		}
	} else {
		logger.Info().Str("dir", cfg.Storage.LocalDir).Msg("using local file system for shipping labels (S3 disabled)")
	}

	// Initialize payment gateway
	stripeClient, err := payment.NewClient(cfg.Stripe, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize stripe client: %w", err)
	}
	gateway := payment.NewStripeGateway(stripeClient, logger)

	// Initialize notification sender
	sender, err := notification.NewSendGridSender(cfg.SendGrid, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sendgrid sender: %w", err)
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	catalogRepo := repository.NewCatalogRepository(pool, logger)

	// Initialize services
	checkoutService := service.NewCheckoutService(
		orderRepo,
		catalogRepo,
		gateway,
		orderMetrics,
		cfg.Checkout.Currency,
		cfg.Checkout.GatewayTimeout,
		logger,
	)
	settlementService := service.NewSettlementService(orderRepo, webhookGuard, gateway, orderMetrics, logger)
	fulfillmentService := service.NewFulfillmentService(orderRepo, labelStore, sender, locker, orderMetrics, logger)
	orderService := service.NewOrderService(orderRepo, logger)

	// Checkout sessions live in this process and expire when idle
	sessions := checkout.NewRegistry(
		checkoutService,
		checkoutService,
		cfg.Checkout.GatewayTimeout,
		cfg.Checkout.SessionTTL,
		logger,
	)
	go sessions.Run(ctx, time.Minute)

	// Initialize router
	mux := router.New(router.Handlers{
		Orders:   handler.NewOrderHandler(orderService, logger),
		Intents:  handler.NewIntentHandler(checkoutService, logger),
		Checkout: handler.NewCheckoutHandler(sessions, logger),
		Admin:    handler.NewAdminOrderHandler(fulfillmentService, logger),
		Webhooks: handler.NewWebhookHandler(gateway, settlementService, logger),
	}, router.Options{
		APIKey:      cfg.Auth.APIKey,
		StaffSecret: cfg.Auth.StaffSecret,
		StaffIssuer: cfg.Auth.StaffIssuer,
		ReadyChecks: readyChecks,
		Gatherer:    registry,
		HTTPMetrics: httpMetrics,
	}, logger)

	// Create HTTP server. The write timeout leaves room for the gateway call.
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Checkout.GatewayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("stripe_env", stripeClient.Environment()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/resilientsys/degrade/internal/api"
	"github.com/resilientsys/degrade/internal/cache"
	"github.com/resilientsys/degrade/pkg/alerting"
	"github.com/resilientsys/degrade/pkg/config"
	"github.com/resilientsys/degrade/pkg/degradation"
	"github.com/resilientsys/degrade/pkg/logging"
	"github.com/resilientsys/degrade/pkg/metrics"
	"github.com/resilientsys/degrade/pkg/probe"
	"github.com/resilientsys/degrade/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: "degraded",
		Version:     version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobalLogger(logger)

	logger.Info("Starting degradation controller",
		"version", version,
		"service", cfg.Controller.ServiceName,
		"probe_kind", cfg.Controller.ProbeKind,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("Controller exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	healthProbe, cleanup, err := buildProbe(cfg, redisClient)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if cfg.Controller.ProbeRetries > 1 {
		retryConfig := probe.DefaultRetryConfig()
		retryConfig.MaxAttempts = cfg.Controller.ProbeRetries
		healthProbe = probe.WithRetry(healthProbe, retryConfig)
	}

	tracingService, err := tracing.NewService(&tracing.Config{
		ServiceName:    "degraded",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	promMetrics := metrics.NewMetrics(&metrics.Config{
		Namespace: "degrade",
		Service:   cfg.Controller.ServiceName,
	})

	alertManager := alerting.NewManager()
	alertManager.AddHandler(alerting.NewLoggingHandler())
	monitor := alerting.NewLevelMonitor(cfg.Controller.ServiceName, alertManager)

	responseCache := cache.NewResponseCache(redisClient, cfg.Redis.CacheTTL)

	controller, err := degradation.NewAIController(degradation.AIConfig{
		Controller: degradation.Config{
			ServiceName: cfg.Controller.ServiceName,
			Probe:       healthProbe,
			Rules: degradation.DefaultRules(
				cfg.Controller.DegradedThreshold,
				cfg.Controller.MinimalThreshold,
				cfg.Controller.OfflineThreshold,
			),
			CheckInterval:   cfg.Controller.CheckInterval,
			DegradedTimeout: cfg.Controller.DegradedTimeout,
			OnLevelChange:   monitor.OnLevelChange,
			Recorder:        promMetrics,
			Logger:          logger,
		},
		PrimaryModel:      cfg.AI.PrimaryModel,
		FallbackModel:     cfg.AI.FallbackModel,
		DefaultMaxTokens:  cfg.AI.DefaultMaxTokens,
		DegradedMaxTokens: cfg.AI.DegradedMaxTokens,
		CachedResponse:    responseCache.Supplier(cfg.Controller.ServiceName),
		ErrorMessage:      cfg.AI.ErrorMessage,
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller.Start(ctx)
	defer controller.Stop()

	handlers := api.NewHandlers(controller, logger)
	router := api.SetupRouter(api.RouterConfig{
		Handlers: handlers,
		Logger:   logger,
		Metrics:  promMetrics,
		Tracing:  tracingService,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	if err := tracingService.Shutdown(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown failed", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// buildProbe selects the health probe for the configured dependency kind.
// The returned cleanup closes connections owned by the probe.
func buildProbe(cfg *config.Config, redisClient *redis.Client) (degradation.Probe, func(), error) {
	switch cfg.Controller.ProbeKind {
	case "http":
		return probe.HTTP(cfg.Controller.ProbeTarget, cfg.Controller.ProbeTimeout), nil, nil

	case "redis":
		return probe.Redis(redisClient), nil, nil

	case "postgres":
		db, err := sqlx.Open("postgres", cfg.DatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		return probe.Postgres(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown probe kind: %q", cfg.Controller.ProbeKind)
	}
}

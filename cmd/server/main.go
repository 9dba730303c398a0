package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nutrilog/backend/config"
	httpDelivery "github.com/nutrilog/backend/internal/delivery/http"
	"github.com/nutrilog/backend/internal/infrastructure/cache"
	"github.com/nutrilog/backend/internal/infrastructure/openai"
	"github.com/nutrilog/backend/internal/metrics"
	"github.com/nutrilog/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger := newLogger(cfg.Server.Environment)
	defer logger.Sync()

	logger.Info("starting nutrilog backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize infrastructure dependencies
	factsCache := cache.New(
		cache.WithMaxSize(cfg.Cache.MaxEntries),
		cache.WithTTL(cfg.Cache.TTL),
	)
	logger.Info("facts cache ready",
		zap.Int("max_entries", cfg.Cache.MaxEntries),
		zap.Duration("ttl", cfg.Cache.TTL),
	)

	estimator := openai.NewClient(openai.Config{
		APIKey:      cfg.Estimator.APIKey,
		BaseURL:     cfg.Estimator.BaseURL,
		Model:       cfg.Estimator.Model,
		Temperature: cfg.Estimator.Temperature,
		MaxTokens:   cfg.Estimator.MaxTokens,
		Timeout:     cfg.Estimator.Timeout,
		MaxRetries:  cfg.Estimator.MaxRetries,
	}, logger)
	logger.Info("estimator configured",
		zap.String("base_url", cfg.Estimator.BaseURL),
		zap.String("model", cfg.Estimator.Model),
		zap.Duration("timeout", cfg.Estimator.Timeout),
	)

	// Initialize usecase layer
	analysisService := usecase.NewAnalysisService(
		factsCache,
		estimator,
		logger,
		usecase.AnalysisServiceConfig{DedupeInFlight: true},
	)

	metrics.Register(func() float64 {
		return float64(factsCache.Stats().Size)
	})

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(analysisService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// newLogger builds the process logger: human-readable in development,
// JSON in production. LOG_LEVEL handling is left to zap defaults.
func newLogger(environment string) *zap.Logger {
	var logger *zap.Logger
	var err error

	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}

	return logger
}

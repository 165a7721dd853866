// Package cli provides the start-up steps shared by cmd/spese, cmd/spese-cli
// and cmd/spese-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"speselog/internal/amqp"
	"speselog/internal/cache"
	"speselog/internal/config"
	"speselog/internal/core"
	"speselog/internal/log"
	"speselog/internal/services"
	"speselog/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and makes it the
// slog default.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// It exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the report history database, exiting the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ConnectPublisher connects to the broker when one is configured. Event
// publishing is optional: a broker that cannot be reached is logged and the
// returned publisher is nil. The returned func closes the connection.
func ConnectPublisher(logger *log.Logger, cfg *config.Config) (services.Publisher, func()) {
	if !cfg.AMQPEnabled() {
		logger.Info("Event publishing disabled - no AMQP_URL provided")
		return nil, func() {}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, continuing without event publishing", log.FieldError, err)
		return nil, func() {}
	}
	logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
}

// NewTotalsCache builds the monthly totals cache from configuration.
func NewTotalsCache(cfg *config.Config) *cache.LRUCache[core.MonthlyReport] {
	return cache.NewLRUCache[core.MonthlyReport](cfg.TotalsCacheSize, cfg.TotalsCacheTTL)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

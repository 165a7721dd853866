package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Expense log
	ExpensesFile string
	Currency     string

	// Report history database
	SQLiteDBPath string

	// AMQP (optional, empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Month-end scheduler
	ReportCheckInterval time.Duration

	// Monthly totals cache
	TotalsCacheSize int
	TotalsCacheTTL  time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		ExpensesFile: getEnv("EXPENSES_FILE", "./data/expenses.csv"),
		Currency:     strings.ToUpper(getEnv("CURRENCY", "EUR")),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/speselog.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "speselog"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "speselog_events"),

		ReportCheckInterval: getEnvDuration("REPORT_CHECK_INTERVAL", time.Hour),

		TotalsCacheSize: getEnvInt("TOTALS_CACHE_SIZE", 64),
		TotalsCacheTTL:  getEnvDuration("TOTALS_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// AMQPEnabled reports whether event publishing is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.ExpensesFile) == "" {
		errors = append(errors, "expenses file path cannot be empty")
	}

	if len(c.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a 3-letter ISO 4217 code", c.Currency))
	}

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReportCheckInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report check interval %v: must be at least 1 second", c.ReportCheckInterval))
	} else if c.ReportCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report check interval %v: must be at most 24 hours", c.ReportCheckInterval))
	}

	if c.TotalsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid totals cache size %d: must be at least 1", c.TotalsCacheSize))
	}
	if c.TotalsCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid totals cache TTL %v: must be positive", c.TotalsCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

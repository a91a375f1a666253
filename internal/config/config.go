// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for durable storage (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Upstream collaborators
	ProviderBaseURL string // statement provider API
	CalendarBaseURL string // trading data engine (earnings calendar)
	FetchTimeout    time.Duration

	// Cache tuning
	L1HitTTL         time.Duration // positive L1 entries
	L1MissTTL        time.Duration // negative (confirmed-absent) L1 entries
	EarningsCacheTTL time.Duration // earnings-gate lookup cache
	MaxStalenessDays int           // stale-serve budget when no earnings date is known

	// Durable store backend: "sqlite", "fs", or "s3"
	StoreBackend string
	S3Bucket     string
	S3Prefix     string
	S3Endpoint   string // non-AWS endpoints (e.g. Cloudflare R2)
	S3Region     string

	// Batch refresh
	RefreshSchedule string // cron expression; empty disables the job
	DefaultTickers  []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STATEMENTS_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		ProviderBaseURL: getEnv("STATEMENTS_PROVIDER_URL", "http://localhost:9100"),
		CalendarBaseURL: getEnv("TRADING_DATA_ENGINE_URL", "http://localhost:8081"),
		FetchTimeout:    getEnvAsDuration("STATEMENTS_FETCH_TIMEOUT_SECONDS", 30*time.Second),

		L1HitTTL:         getEnvAsDuration("FINANCIAL_L1_HIT_TTL_SECONDS", 600*time.Second),
		L1MissTTL:        getEnvAsDuration("FINANCIAL_L1_MISS_TTL_SECONDS", 120*time.Second),
		EarningsCacheTTL: getEnvAsDuration("EARNINGS_CACHE_TTL_SECONDS", 30*time.Minute),
		MaxStalenessDays: getEnvAsInt("FINANCIAL_NO_EARNINGS_MAX_STALENESS_DAYS", 3),

		StoreBackend: getEnv("STATEMENTS_STORE_BACKEND", "sqlite"),
		S3Bucket:     getEnv("STATEMENTS_S3_BUCKET", ""),
		S3Prefix:     getEnv("STATEMENTS_S3_PREFIX", "statements/"),
		S3Endpoint:   getEnv("STATEMENTS_S3_ENDPOINT", ""),
		S3Region:     getEnv("STATEMENTS_S3_REGION", "auto"),

		RefreshSchedule: getEnv("STATEMENTS_REFRESH_SCHEDULE", "0 7 * * *"),
		DefaultTickers:  getEnvAsList("STATEMENTS_DEFAULT_TICKERS", defaultTickers),
	}

	if cfg.MaxStalenessDays < 1 {
		cfg.MaxStalenessDays = 1
	}

	switch cfg.StoreBackend {
	case "sqlite", "fs":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("STATEMENTS_S3_BUCKET is required when STATEMENTS_STORE_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// defaultTickers is the batch-refresh universe used when no override is configured.
var defaultTickers = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "AVGO",
	"JPM", "V", "UNH", "XOM", "JNJ", "PG", "MA", "HD", "COST", "ORCL",
	"KO", "PEP",
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration reads a whole number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToUpper(trimmed))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

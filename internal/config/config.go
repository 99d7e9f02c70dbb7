// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultUserAgent = "13F-Portfolio-Tracker (contact@13f-portfolio.com)"

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding client_data.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	SECUserAgent          string
	SECRequestTimeout     time.Duration
	SECMinRequestInterval time.Duration // SEC fair-access policy allows 10 requests/second
	SECCacheTTL           time.Duration

	OpenFIGIAPIKey         string // Optional - raises OpenFIGI rate limits
	OpenFIGIRequestTimeout time.Duration

	RedisURL   string // Empty disables Redis, upstream cache falls back to memory
	RosterFile string // Empty uses the built-in roster

	PortfolioWarmupSchedule string // cron expression, empty disables
	CacheCleanupSchedule    string // cron expression, empty disables
	HTTPRequestTimeout      time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8013),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		SECUserAgent:          getEnv("SEC_USER_AGENT", defaultUserAgent),
		SECRequestTimeout:     getEnvAsDuration("SEC_REQUEST_TIMEOUT", 20*time.Second),
		SECMinRequestInterval: getEnvAsDuration("SEC_MIN_REQUEST_INTERVAL", 100*time.Millisecond),
		SECCacheTTL:           getEnvAsDuration("SEC_CACHE_TTL", 24*time.Hour),

		OpenFIGIAPIKey:         getEnv("OPENFIGI_API_KEY", ""),
		OpenFIGIRequestTimeout: getEnvAsDuration("OPENFIGI_REQUEST_TIMEOUT", 15*time.Second),

		RedisURL:   getEnv("REDIS_URL", ""),
		RosterFile: getEnv("ROSTER_FILE", ""),

		PortfolioWarmupSchedule: getEnvAllowEmpty("PORTFOLIO_WARMUP_SCHEDULE", "@every 6h"),
		CacheCleanupSchedule:    getEnvAllowEmpty("CACHE_CLEANUP_SCHEDULE", "@daily"),
		HTTPRequestTimeout:      getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 90*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SECUserAgent == "" {
		return fmt.Errorf("SEC_USER_AGENT must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.SECRequestTimeout <= 0 {
		return fmt.Errorf("SEC_REQUEST_TIMEOUT must be positive")
	}
	if c.OpenFIGIRequestTimeout <= 0 {
		return fmt.Errorf("OPENFIGI_REQUEST_TIMEOUT must be positive")
	}
	if c.HTTPRequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT must be positive")
	}
	if c.SECMinRequestInterval < 0 {
		return fmt.Errorf("SEC_MIN_REQUEST_INTERVAL must not be negative")
	}
	return nil
}

// ClientDataPath returns the path of the sqlite cache database.
func (c *Config) ClientDataPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes "unset" from "set to empty" so schedules can be disabled.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

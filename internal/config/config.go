// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/solcloak/solcloak/internal/validation"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Chain access
	RPCURL     string
	RPCTimeout time.Duration

	// Data collection
	MaxConcurrentFetches int // simultaneous in-flight getTransaction calls
	FetchRetries         int
	SignatureLimit       int // default signatures requested per wallet scan

	// Label provider
	DatabaseURL string // PostgreSQL labels DB (optional, in-memory if not set)
	RedisURL    string // optional label cache
	LabelsPath  string // optional JSON label file merged over built-ins

	// Observability
	OTLPEndpoint string

	// Security
	RateLimitRPM int
}

// Defaults
const (
	DefaultRPCURL         = "https://api.mainnet-beta.solana.com"
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultRPCTimeout     = 30 * time.Second
	DefaultMaxConcurrent  = 8
	DefaultFetchRetries   = 3
	DefaultSignatureLimit = 100
	DefaultRateLimit      = 60
)

// MaxSignatureLimit caps how much history one scan may request.
const MaxSignatureLimit = 1000

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		RPCURL:               getEnv("RPC_URL", DefaultRPCURL),
		RPCTimeout:           getEnvDuration("RPC_TIMEOUT", DefaultRPCTimeout),
		MaxConcurrentFetches: int(getEnvInt64("MAX_CONCURRENT_FETCHES", DefaultMaxConcurrent)),
		FetchRetries:         int(getEnvInt64("FETCH_RETRIES", DefaultFetchRetries)),
		SignatureLimit:       int(getEnvInt64("SIGNATURE_LIMIT", DefaultSignatureLimit)),
		DatabaseURL:          os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RedisURL:             os.Getenv("REDIS_URL"),
		LabelsPath:           os.Getenv("LABELS_PATH"),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:         int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if !validation.IsValidURL(c.RPCURL) {
		return fmt.Errorf("RPC_URL is not a valid http(s) URL")
	}
	if c.MaxConcurrentFetches < 1 {
		return fmt.Errorf("MAX_CONCURRENT_FETCHES must be at least 1")
	}
	if c.SignatureLimit < 1 || c.SignatureLimit > MaxSignatureLimit {
		return fmt.Errorf("SIGNATURE_LIMIT must be between 1 and %d", MaxSignatureLimit)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
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

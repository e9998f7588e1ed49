package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	// Clear anything a local .env might have set
	setEnv(t, "PORT", "")
	setEnv(t, "ENV", "")
	setEnv(t, "RPC_URL", "")
	setEnv(t, "SIGNATURE_LIMIT", "")
	setEnv(t, "RATE_LIMIT_RPM", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultRPCTimeout, cfg.RPCTimeout)
	assert.Equal(t, DefaultMaxConcurrent, cfg.MaxConcurrentFetches)
	assert.Equal(t, DefaultFetchRetries, cfg.FetchRetries)
	assert.Equal(t, DefaultSignatureLimit, cfg.SignatureLimit)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimitRPM)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "RPC_URL", "https://rpc.example.com")
	setEnv(t, "RPC_TIMEOUT", "5s")
	setEnv(t, "SIGNATURE_LIMIT", "250")
	setEnv(t, "MAX_CONCURRENT_FETCHES", "16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
	assert.Equal(t, 5*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 250, cfg.SignatureLimit)
	assert.Equal(t, 16, cfg.MaxConcurrentFetches)
}

func TestLoad_InvalidRPCURL(t *testing.T) {
	setEnv(t, "RPC_URL", "not a url")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RPC_URL")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		RPCURL:               DefaultRPCURL,
		MaxConcurrentFetches: DefaultMaxConcurrent,
		SignatureLimit:       DefaultSignatureLimit,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing RPC URL",
			mutate:  func(c *Config) { c.RPCURL = "" },
			wantErr: "RPC_URL is required",
		},
		{
			name:    "RPC URL without scheme",
			mutate:  func(c *Config) { c.RPCURL = "api.mainnet-beta.solana.com" },
			wantErr: "not a valid http(s) URL",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.MaxConcurrentFetches = 0 },
			wantErr: "MAX_CONCURRENT_FETCHES must be at least 1",
		},
		{
			name:    "zero signature limit",
			mutate:  func(c *Config) { c.SignatureLimit = 0 },
			wantErr: "SIGNATURE_LIMIT must be between 1 and 1000",
		},
		{
			name:    "signature limit above cap",
			mutate:  func(c *Config) { c.SignatureLimit = MaxSignatureLimit + 1 },
			wantErr: "SIGNATURE_LIMIT must be between 1 and 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}

func TestGetEnvDuration(t *testing.T) {
	setEnv(t, "TEST_DURATION", "90s")
	setEnv(t, "TEST_BAD_DURATION", "ninety seconds")

	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("NONEXISTENT_VAR", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_BAD_DURATION", time.Second))
}

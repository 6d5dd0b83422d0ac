// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the cache and audit databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	FundMetrics FundMetricsConfig

	PolicyFile string
	Policy     domain.Policy

	AuditEnabled           bool
	AuditRetention         time.Duration
	RecommendationsEnabled bool

	CORSAllowedOrigins []string
}

// FundMetricsConfig configures the fund metrics provider client
type FundMetricsConfig struct {
	BaseURL        string
	Timeout        time.Duration // Bound on one batched lookup
	BatchSize      int           // Scheme codes per upstream request
	MaxConcurrency int           // Upstream requests in flight per lookup
	RateLimit      float64       // Requests per second, 0 disables limiting
	CacheTTL       time.Duration
}

// Load reads configuration from the environment (and .env when present)
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("REBALANCER_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8002),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		FundMetrics: FundMetricsConfig{
			BaseURL:        getEnv("FUND_METRICS_URL", "http://localhost:3501"),
			Timeout:        getEnvAsDuration("FUND_METRICS_TIMEOUT", 3*time.Second),
			BatchSize:      getEnvAsInt("FUND_METRICS_BATCH_SIZE", 50),
			MaxConcurrency: getEnvAsInt("FUND_METRICS_MAX_CONCURRENCY", 10),
			RateLimit:      getEnvAsFloat("FUND_METRICS_RATE_LIMIT", 20),
			CacheTTL:       getEnvAsDuration("FUND_METRICS_CACHE_TTL", 30*time.Minute),
		},
		PolicyFile:             getEnv("POLICY_FILE", ""),
		AuditEnabled:           getEnvAsBool("AUDIT_ENABLED", true),
		AuditRetention:         getEnvAsDuration("AUDIT_RETENTION", 90*24*time.Hour),
		RecommendationsEnabled: getEnvAsBool("RECOMMENDATIONS_ENABLED", true),
		CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for impossible values
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("GO_PORT out of range: %d", c.Port))
	}
	if u, err := url.Parse(c.FundMetrics.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("FUND_METRICS_URL is not an absolute URL: %q", c.FundMetrics.BaseURL))
	}
	if c.FundMetrics.Timeout <= 0 {
		errs = append(errs, errors.New("FUND_METRICS_TIMEOUT must be positive"))
	}
	if c.FundMetrics.BatchSize <= 0 {
		errs = append(errs, errors.New("FUND_METRICS_BATCH_SIZE must be positive"))
	}
	if c.FundMetrics.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("FUND_METRICS_MAX_CONCURRENCY must be positive"))
	}
	if c.FundMetrics.RateLimit < 0 {
		errs = append(errs, errors.New("FUND_METRICS_RATE_LIMIT must not be negative"))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid policy: %w", err))
	}
	return errors.Join(errs...)
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsList(key string, defaultValue []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Storage
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)
	RedisURL    string // Redis connection string (optional, uses in-memory history if not set)

	// Verification providers
	VerifyBaseURL   string // gateway base URL (optional, static PASS client if not set)
	VerifyAPIKey    string
	VerifyTimeoutMS int

	// Scoring inputs
	HighRiskCountries []string // ISO 3166-1 alpha-2 codes

	// Security
	AdminSecret  string // bearer token for the admin API
	RateLimitRPM int    // per-IP limit on the assess endpoint

	// Observability
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultVerifyTimeoutMS = 3000
	DefaultRateLimitRPM    = 600
)

// DefaultHighRiskCountries is the fallback screening list; operators
// override it with HIGH_RISK_COUNTRIES.
var DefaultHighRiskCountries = []string{"NG", "CM", "GH", "KE"}

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		VerifyBaseURL:     os.Getenv("VERIFY_BASE_URL"),
		VerifyAPIKey:      os.Getenv("VERIFY_API_KEY"),
		VerifyTimeoutMS:   getEnvInt("VERIFY_TIMEOUT_MS", DefaultVerifyTimeoutMS),
		HighRiskCountries: getEnvList("HIGH_RISK_COUNTRIES", DefaultHighRiskCountries),
		AdminSecret:       os.Getenv("ADMIN_SECRET"),
		RateLimitRPM:      getEnvInt("RATE_LIMIT_RPM", DefaultRateLimitRPM),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.AdminSecret == "" {
			return fmt.Errorf("ADMIN_SECRET is required in production")
		}
		if c.VerifyBaseURL == "" {
			return fmt.Errorf("VERIFY_BASE_URL is required in production")
		}
	}
	if c.VerifyBaseURL != "" && c.VerifyAPIKey == "" {
		return fmt.Errorf("VERIFY_API_KEY is required when VERIFY_BASE_URL is set")
	}
	if c.VerifyTimeoutMS <= 0 {
		return fmt.Errorf("VERIFY_TIMEOUT_MS must be positive")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	return nil
}

// VerifyTimeout returns the per-check verification timeout.
func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.VerifyTimeoutMS) * time.Millisecond
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool { return c.Env == "production" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

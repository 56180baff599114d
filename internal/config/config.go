// Package config provides configuration management for PostVault.
// Settings come from three layers: built-in defaults, an optional YAML file
// named by POSTVAULT_CONFIG, and environment variables with the POSTVAULT_
// prefix. Environment variables take precedence over the file so deploys
// can ship a baseline file and tweak per-instance via the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the PostVault application.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Hydration HydrationConfig `yaml:"hydration"`
	Query     QueryConfig     `yaml:"query"`
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	// DatabasePath is the SQLite database file path (default: ./postvault.db).
	DatabasePath string `yaml:"database_path"`
}

// HydrationConfig tunes the hydration pipeline.
type HydrationConfig struct {
	// Limit is the default candidate cap per run (default: 50).
	Limit int `yaml:"limit"`

	// MaxAttempts is the attempt budget before a post is declared missing
	// (default: 3).
	MaxAttempts int `yaml:"max_attempts"`

	// RatePerSecond is the client-side fetch rate limit; 0 disables
	// limiting (default: 1).
	RatePerSecond float64 `yaml:"rate_per_second"`

	// RateBurst is the limiter burst size (default: 5).
	RateBurst int `yaml:"rate_burst"`

	// BreakerMaxFailures trips the platform circuit breaker after this many
	// consecutive failures (default: 5).
	BreakerMaxFailures int `yaml:"breaker_max_failures"`

	// BreakerTimeout is how long the circuit stays open (default: 60s).
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`

	// StuckFetchingBound is the age past which a fetching row counts as
	// stuck in stats reporting (default: 1h).
	StuckFetchingBound time.Duration `yaml:"stuck_fetching_bound"`
}

// QueryConfig tunes the read surface.
type QueryConfig struct {
	// SnippetChars bounds snippets in default output mode (default: 300).
	SnippetChars int `yaml:"snippet_chars"`

	// ContentBudget is the aggregate character cap per page when full
	// content is requested (default: 40000).
	ContentBudget int `yaml:"content_budget"`
}

// LoadConfig builds the configuration: defaults, then the YAML file named
// by POSTVAULT_CONFIG (when set), then environment overrides.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("POSTVAULT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Storage.DatabasePath == "" {
		return nil, fmt.Errorf("config: database path must not be empty")
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: "./postvault.db",
		},
		Hydration: HydrationConfig{
			Limit:              50,
			MaxAttempts:        3,
			RatePerSecond:      1,
			RateBurst:          5,
			BreakerMaxFailures: 5,
			BreakerTimeout:     60 * time.Second,
			StuckFetchingBound: time.Hour,
		},
		Query: QueryConfig{
			SnippetChars:  300,
			ContentBudget: 40000,
		},
	}
}

func (c *Config) applyEnv() {
	c.Storage.DatabasePath = getEnv("POSTVAULT_DB_PATH", c.Storage.DatabasePath)

	c.Hydration.Limit = getEnvInt("POSTVAULT_HYDRATION_LIMIT", c.Hydration.Limit)
	c.Hydration.MaxAttempts = getEnvInt("POSTVAULT_HYDRATION_MAX_ATTEMPTS", c.Hydration.MaxAttempts)
	c.Hydration.RatePerSecond = getEnvFloat("POSTVAULT_HYDRATION_RATE", c.Hydration.RatePerSecond)
	c.Hydration.RateBurst = getEnvInt("POSTVAULT_HYDRATION_BURST", c.Hydration.RateBurst)
	c.Hydration.BreakerMaxFailures = getEnvInt("POSTVAULT_BREAKER_MAX_FAILURES", c.Hydration.BreakerMaxFailures)
	c.Hydration.BreakerTimeout = getEnvDuration("POSTVAULT_BREAKER_TIMEOUT", c.Hydration.BreakerTimeout)
	c.Hydration.StuckFetchingBound = getEnvDuration("POSTVAULT_STUCK_FETCHING_BOUND", c.Hydration.StuckFetchingBound)

	c.Query.SnippetChars = getEnvInt("POSTVAULT_QUERY_SNIPPET_CHARS", c.Query.SnippetChars)
	c.Query.ContentBudget = getEnvInt("POSTVAULT_QUERY_CONTENT_BUDGET", c.Query.ContentBudget)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "90s") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

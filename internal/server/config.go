// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the CityChat service.
package server

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server configuration, loaded from the environment.
type Config struct {
	Port            string        `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"1024"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	RateLimitRefill time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	GoogleAPIKey    string        `envconfig:"GOOGLE_API_KEY"`
	GeocodeTimeout  time.Duration `envconfig:"GEOCODE_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

var (
	configMu     sync.RWMutex
	activeConfig Config
	activePolicy originPolicy
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port:            ":8080",
		AllowedOrigins:  []string{"http://localhost:8080"},
		MaxMessageSize:  1024,
		RateLimitBurst:  5,
		RateLimitRefill: time.Second,
		GeocodeTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1024
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 5
	}
	if c.RateLimitRefill <= 0 {
		c.RateLimitRefill = time.Second
	}
	if c.GeocodeTimeout <= 0 {
		c.GeocodeTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// SlogLevel maps the configured level name onto a slog level, defaulting to
// info for anything unrecognized.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewConfig creates a Config populated with default values.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv loads the configuration from environment variables,
// falling back to defaults for anything unset.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.sanitize()
	return &cfg, nil
}

// SetConfig applies the provided configuration and rebuilds the origin
// policy. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	applied := defaultConfig()
	if cfg != nil {
		applied = *cfg
		applied.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	}
	applied.sanitize()
	policy := newOriginPolicy(applied.AllowedOrigins)

	configMu.Lock()
	defer configMu.Unlock()
	activeConfig = applied
	activePolicy = policy
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

func currentPolicy() originPolicy {
	configMu.RLock()
	defer configMu.RUnlock()
	return activePolicy
}

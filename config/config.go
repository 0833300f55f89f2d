// ABOUTME: This file handles configuration management for note-sync
// ABOUTME: Loads environment variables and validates settings for the notes API cache

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MaxPageSize caps every list request regardless of the configured page size.
const MaxPageSize = 50

// Config holds all configuration for note-sync
type Config struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" envDefault:"note-sync"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Local cache database
	Database DatabaseConfig

	// Remote notes API
	API APIConfig

	// Bearer credential refresh
	Auth AuthConfig

	// Paged view behaviour
	Paging PagingConfig

	// Prometheus exposition
	Metrics MetricsConfig
}

// DatabaseConfig holds local store settings
type DatabaseConfig struct {
	Path        string        `env:"NOTE_SYNC_DB_PATH" envDefault:"note-sync.db"`
	BusyTimeout time.Duration `env:"NOTE_SYNC_DB_BUSY_TIMEOUT" envDefault:"5s"`
}

// APIConfig holds remote notes API settings
type APIConfig struct {
	BaseURL           string        `env:"NOTE_API_BASE_URL"`
	Timeout           time.Duration `env:"NOTE_API_TIMEOUT" envDefault:"30s"`
	ConnectTimeout    time.Duration `env:"NOTE_API_CONNECT_TIMEOUT" envDefault:"10s"`
	RequestsPerSecond float64       `env:"NOTE_API_REQUESTS_PER_SECOND" envDefault:"5"`
	Burst             int           `env:"NOTE_API_BURST" envDefault:"5"`
	UserAgent         string        `env:"NOTE_API_USER_AGENT" envDefault:"note-sync/1.0"`
}

// AuthConfig holds credential provider settings
type AuthConfig struct {
	TokenURL      string        `env:"NOTE_AUTH_TOKEN_URL"`
	APIKey        string        `env:"NOTE_AUTH_API_KEY"`
	RefreshToken  string        `env:"NOTE_AUTH_REFRESH_TOKEN"`
	IDToken       string        `env:"NOTE_AUTH_ID_TOKEN"`
	RefreshBuffer time.Duration `env:"NOTE_AUTH_REFRESH_BUFFER" envDefault:"5m"`
}

// PagingConfig holds paged view settings
type PagingConfig struct {
	Feed             string `env:"NOTE_PAGING_FEED" envDefault:"main"`
	PageSize         int    `env:"NOTE_PAGING_PAGE_SIZE" envDefault:"10"`
	PrefetchDistance int    `env:"NOTE_PAGING_PREFETCH_DISTANCE" envDefault:"-1"`
	Order            string `env:"NOTE_PAGING_ORDER" envDefault:"desc"`
}

// MetricsConfig holds metrics listener settings
type MetricsConfig struct {
	Addr string `env:"NOTE_METRICS_ADDR"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Prefetch distance defaults to one page
	if cfg.Paging.PrefetchDistance < 0 {
		cfg.Paging.PrefetchDistance = cfg.Paging.PageSize
	}
	cfg.Paging.Order = strings.ToLower(cfg.Paging.Order)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("NOTE_API_BASE_URL is required")
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("NOTE_API_BASE_URL must be an absolute URL: %q", c.API.BaseURL)
	}

	if c.Paging.PageSize < 1 {
		return fmt.Errorf("NOTE_PAGING_PAGE_SIZE must be positive, got %d", c.Paging.PageSize)
	}

	if c.Paging.PrefetchDistance < 0 {
		return fmt.Errorf("NOTE_PAGING_PREFETCH_DISTANCE must not be negative, got %d", c.Paging.PrefetchDistance)
	}

	if c.Paging.Order != "asc" && c.Paging.Order != "desc" {
		return fmt.Errorf("NOTE_PAGING_ORDER must be asc or desc, got %q", c.Paging.Order)
	}

	if c.Paging.Feed == "" {
		return fmt.Errorf("NOTE_PAGING_FEED must not be empty")
	}

	if c.Auth.RefreshToken != "" && c.Auth.TokenURL == "" {
		return fmt.Errorf("NOTE_AUTH_TOKEN_URL is required when NOTE_AUTH_REFRESH_TOKEN is set")
	}

	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("NOTE_API_REQUESTS_PER_SECOND must not be negative")
	}

	return nil
}

// EffectivePageSize returns the configured page size capped at MaxPageSize
func (c *Config) EffectivePageSize() int {
	return min(c.Paging.PageSize, MaxPageSize)
}

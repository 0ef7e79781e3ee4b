package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Sandbox   SandboxConfig
	Render    RenderConfig
	Store     StoreConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// FetchConfig holds data proxy connection settings.
type FetchConfig struct {
	BaseURL    string        `envconfig:"FETCH_BASE_URL" default:"http://localhost:3001"`
	Timeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	MaxRetries int           `envconfig:"FETCH_MAX_RETRIES" default:"3"`
}

// SandboxConfig holds execution sandbox settings.
type SandboxConfig struct {
	PoolSize int           `envconfig:"SANDBOX_POOL_SIZE" default:"8"`
	Timeout  time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
}

// RenderConfig bounds the wait for widget outcome signals.
type RenderConfig struct {
	ReadyTimeout  time.Duration `envconfig:"RENDER_READY_TIMEOUT" default:"10s"`
	Grace         time.Duration `envconfig:"RENDER_GRACE" default:"3s"`
	DocumentCache int           `envconfig:"RENDER_DOCUMENT_CACHE" default:"256"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `envconfig:"STORE_PATH" default:"vizlet.db"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Fetch: FetchConfig{
			BaseURL:    "http://localhost:3001",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Sandbox: SandboxConfig{
			PoolSize: 8,
			Timeout:  5 * time.Second,
		},
		Render: RenderConfig{
			ReadyTimeout:  10 * time.Second,
			Grace:         3 * time.Second,
			DocumentCache: 256,
		},
		Store: StoreConfig{
			Path: "vizlet.db",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

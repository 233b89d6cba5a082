package config

import (
	"fmt"
	"time"

	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/env"
)

// Config holds all configuration for the client core
type Config struct {
	API       APIConfig
	Signaling SignalingConfig
	Cache     CacheConfig
	Retry     RetryConfig
	Reaction  ReactionConfig
	Log       LogConfig
}

// APIConfig holds remote API configuration
type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// SignalingConfig holds signaling service configuration
type SignalingConfig struct {
	URL              string // ws:// or wss:// endpoint
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
}

// CacheConfig holds the local durable cache (Redis) configuration
type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// RetryConfig holds the refresh retry policy
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// ReactionConfig holds the reaction reconciler configuration
type ReactionConfig struct {
	DebounceWindow time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, file
	FilePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL: env.GetString("API_BASE_URL", "http://localhost:8080/api/v1"),
			Token:   env.GetString("API_TOKEN", ""),
			Timeout: env.GetDuration("API_TIMEOUT", constants.DefaultTimeout),
		},
		Signaling: SignalingConfig{
			URL:              env.GetString("SIGNALING_URL", "ws://localhost:8081/ws/signaling"),
			PingInterval:     env.GetDuration("SIGNALING_PING_INTERVAL", constants.WebSocketPingInterval),
			HandshakeTimeout: env.GetDuration("SIGNALING_HANDSHAKE_TIMEOUT", constants.WebSocketHandshakeTimeout),
		},
		Cache: CacheConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetString("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			PoolSize: env.GetInt("REDIS_POOL_SIZE", 10),
		},
		Retry: RetryConfig{
			Attempts: env.GetInt("REFRESH_RETRY_ATTEMPTS", constants.DefaultRetryAttempts),
			Delay:    env.GetDuration("REFRESH_RETRY_DELAY", constants.DefaultRetryDelay),
		},
		Reaction: ReactionConfig{
			DebounceWindow: env.GetDuration("REACTION_DEBOUNCE_WINDOW", constants.DefaultDebounceWindow),
		},
		Log: LogConfig{
			Level:    env.GetString("LOG_LEVEL", "info"),
			Format:   env.GetString("LOG_FORMAT", "json"),
			Output:   env.GetString("LOG_OUTPUT", "stdout"),
			FilePath: env.GetString("LOG_FILE_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if c.Signaling.URL == "" {
		return fmt.Errorf("signaling URL is required")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	if c.Reaction.DebounceWindow <= 0 {
		return fmt.Errorf("reaction debounce window must be positive")
	}
	return nil
}

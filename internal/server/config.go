package server

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig defines the parameters for per-connection event rate limiting.
type RateLimitConfig struct {
	Burst          int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
}

// Config holds the relay configuration, populated from the environment.
type Config struct {
	Port            string        `envconfig:"SERVER_PORT" default:":3000"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	HistoryLimit    int           `envconfig:"HISTORY_LIMIT" default:"200"`
	ReplayLimit     int           `envconfig:"REPLAY_LIMIT" default:"50"`
	SendQueueSize   int           `envconfig:"SEND_QUEUE_SIZE" default:"256"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimit       RateLimitConfig
}

func defaultConfig() Config {
	return Config{
		Port:            ":3000",
		AllowedOrigins:  []string{"http://localhost:3000"},
		MaxMessageSize:  4096,
		HistoryLimit:    200,
		ReplayLimit:     50,
		SendQueueSize:   256,
		ShutdownTimeout: 10 * time.Second,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
	}
}

// sanitize replaces out-of-range values with defaults. The replay limit can
// never exceed the history limit.
func (c *Config) sanitize() {
	d := defaultConfig()

	if c.Port == "" {
		c.Port = d.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.ReplayLimit <= 0 {
		c.ReplayLimit = d.ReplayLimit
	}
	if c.ReplayLimit > c.HistoryLimit {
		c.ReplayLimit = c.HistoryLimit
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = d.SendQueueSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = d.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = d.RateLimit.RefillInterval
	}
}

// NewConfig returns a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv builds a Config from environment variables, falling back
// to defaults for anything unset or out of range.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	cfg.sanitize()
	return &cfg, nil
}

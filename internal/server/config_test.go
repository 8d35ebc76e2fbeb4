package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()

	req.Equal(":3000", cfg.Port)
	req.Equal([]string{"http://localhost:3000"}, cfg.AllowedOrigins)
	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(200, cfg.HistoryLimit)
	req.Equal(50, cfg.ReplayLimit)
	req.Equal(256, cfg.SendQueueSize)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
	req.Equal(10, cfg.RateLimit.Burst)
	req.Equal(time.Second, cfg.RateLimit.RefillInterval)
}

func TestNewConfigFromEnvOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("SERVER_PORT", ":8081")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("HISTORY_LIMIT", "10")
	t.Setenv("REPLAY_LIMIT", "99")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")

	cfg, err := NewConfigFromEnv()
	req.NoError(err)

	req.Equal(":8081", cfg.Port)
	req.Equal([]string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	req.Equal(10, cfg.HistoryLimit)
	// The replay limit can never exceed the history limit.
	req.Equal(10, cfg.ReplayLimit)
	req.Equal(7, cfg.RateLimit.Burst)
	req.Equal(2*time.Second, cfg.RateLimit.RefillInterval)
}

func TestSanitizeRestoresDefaultsForInvalidValues(t *testing.T) {
	req := require.New(t)
	cfg := Config{
		Port:           "",
		MaxMessageSize: -1,
		HistoryLimit:   0,
		ReplayLimit:    -5,
		SendQueueSize:  0,
		RateLimit:      RateLimitConfig{Burst: -1, RefillInterval: 0},
	}
	cfg.sanitize()

	d := defaultConfig()
	req.Equal(d.Port, cfg.Port)
	req.Equal(d.MaxMessageSize, cfg.MaxMessageSize)
	req.Equal(d.HistoryLimit, cfg.HistoryLimit)
	req.Equal(d.ReplayLimit, cfg.ReplayLimit)
	req.Equal(d.SendQueueSize, cfg.SendQueueSize)
	req.Equal(d.ShutdownTimeout, cfg.ShutdownTimeout)
	req.Equal(d.RateLimit, cfg.RateLimit)
}

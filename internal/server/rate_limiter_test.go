package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, rl.allow(), "token %d", i)
	}
	require.False(t, rl.allow())
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(1, 20*time.Millisecond)

	require.True(t, rl.allow())
	require.False(t, rl.allow())

	time.Sleep(30 * time.Millisecond)
	require.True(t, rl.allow())
}

func TestRateLimiterClampsInvalidParameters(t *testing.T) {
	rl := newRateLimiter(0, 0)
	require.True(t, rl.allow())
	require.False(t, rl.allow())
}

package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestLimiter_PerKeyBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRequestLimiter(60, 1)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("u1"))
	require.False(t, rl.Allow("u1"))
	require.True(t, rl.Allow("u2"))
	require.Equal(t, time.Second, rl.WaitTime("u1"))

	now = now.Add(time.Second)
	require.Equal(t, time.Duration(0), rl.WaitTime("u1"))
	require.True(t, rl.Allow("u1"))
	require.False(t, rl.Allow("u1"))

	rl.Reset("u1")
	require.True(t, rl.Allow("u1"))
}

func TestRequestLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRequestLimiter(1, 1)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("idle"))
	now = now.Add(11 * time.Minute)
	require.True(t, rl.Allow("other"))

	rl.mu.Lock()
	_, kept := rl.buckets["idle"]
	rl.mu.Unlock()
	require.False(t, kept)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
		{name: "zero burst is raised to one", rps: 1, burst: 0, calls: 3, wantPass: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("test") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(10, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "test"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "first Wait should be immediate")

	start = time.Now()
	require.NoError(t, rl.Wait(ctx, "test"))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.Less(t, elapsed, 250*time.Millisecond)
}

func TestKeyedRateLimiter_WaitContextCancelled(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	rl.Allow("test")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, rl.Wait(ctx, "test"))
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.Allow("key1")
	assert.False(t, rl.Allow("key1"), "key1 should be exhausted")
	assert.True(t, rl.Allow("key2"), "key2 should be independent")
}

func TestPerMinute(t *testing.T) {
	rl := PerMinute(90, 5)
	defer rl.Stop()

	passed := 0
	for range 10 {
		if rl.Allow("anilist") {
			passed++
		}
	}
	assert.Equal(t, 5, passed)
}

func TestKeyedRateLimiter_EvictsIdleKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(DefaultIdleTTL / 2)
	rl.Allow("fresh")
	now = now.Add(DefaultIdleTTL/2 + time.Second)

	rl.evict()

	assert.Equal(t, 1, rl.Len())
	rl.mu.Lock()
	_, ok := rl.limiters["fresh"]
	rl.mu.Unlock()
	assert.True(t, ok)
}

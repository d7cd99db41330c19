package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	defer rl.Stop()

	ok, _ := rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok)

	ok, retry := rl.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Positive(t, retry)

	// a different client has its own bucket
	ok, _ = rl.allow("10.0.0.2")
	assert.True(t, ok)
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	defer rl.Stop()

	assert.Equal(t, 60.0, rl.perMinute)
	assert.Equal(t, 1, rl.burst)
	rl.Stop() // idempotent
}

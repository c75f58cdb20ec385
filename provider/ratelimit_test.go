package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAdmitsFirstRequestImmediately(t *testing.T) {
	rl := NewRateLimiter(1000) // fast, so the test stays quick
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, rl.Wait(ctx))
}

func TestRateLimiterDefaultsWhenNonPositive(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.NotNil(t, rl.limiter)
}

package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a process-wide, per-instance token bucket fixed at a
// requests-per-second rate, grounded on original_source's
// inference/base_client.py RateLimiter and adapted from the shape of
// goa-ai's middleware.AdaptiveRateLimiter (a process-local limiter
// wrapping golang.org/x/time/rate) with the AIMD/cluster-coordination
// portion dropped: the spec calls for a fixed rate, not an adaptive
// one.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing ratePerSec requests/second
// with a burst of 1, matching the Python adapters' default of 5/s.
func NewRateLimiter(ratePerSec float64) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 5.0
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1)}
}

// Wait blocks until the limiter admits one request or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

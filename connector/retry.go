package connector

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds a decorrelated-jitter retry loop by both attempt
// count and total elapsed wall time.
type RetryPolicy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxElapsed  time.Duration
}

// DefaultRetryPolicy matches the engine-wide defaults used by
// connectors and provider adapters.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		MaxElapsed:  30 * time.Second,
	}
}

// Retryable reports whether err represents a transient condition
// worth retrying: HTTP 429 or any 5xx status, surfaced via a
// StatusCoder on the error.
type StatusCoder interface{ StatusCode() int }

func Retryable(err error) bool {
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
	}
	return false
}

// Do runs fn under the policy, retrying while shouldRetry(err) is true,
// using decorrelated jitter, bounded by MaxAttempts and MaxElapsed.
func Do(ctx context.Context, policy RetryPolicy, shouldRetry func(error) bool, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.MaxInterval = policy.MaxDelay
	b.MaxElapsedTime = policy.MaxElapsed
	bctx := backoff.WithContext(b, ctx)

	attempts := uint64(0)
	operation := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if attempts >= policy.MaxAttempts {
			return backoff.Permanent(err)
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(operation, bctx)
}

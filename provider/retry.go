package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bonehead-labs/fmf/errs"
)

// StatusCoder is implemented by transport errors that carry an HTTP
// status code, mirroring the Python adapters' getattr(exc,
// "status_code", None) check in base_client.should_retry.
type StatusCoder interface {
	StatusCode() int
}

func isRetryableStatus(err error) bool {
	sc, ok := err.(StatusCoder)
	if !ok {
		return false
	}
	code := sc.StatusCode()
	return code == 429 || (code >= 500 && code < 600)
}

// RetryBudget bounds a provider call's retry loop: exponential backoff
// capped at ~2s per attempt, an overall attempt count, and a wall-clock
// ceiling, grounded on original_source's core/retry.py (decorrelated
// jitter via backoff.v4's built-in randomization factor).
type RetryBudget struct {
	MaxAttempts uint64
	MaxElapsed  time.Duration
}

// DefaultRetryBudget matches the spec's "exponential backoff capped at
// ~2s" guidance with a conservative attempt ceiling.
func DefaultRetryBudget() RetryBudget {
	return RetryBudget{MaxAttempts: 5, MaxElapsed: 30 * time.Second}
}

// retries runs fn, retrying on 429/5xx transport errors per budget.
// Non-retryable errors and exhausted budgets surface as
// errs.InferenceErrorf; the number of retry attempts actually taken is
// returned alongside the result for telemetry.
func retries(ctx context.Context, budget RetryBudget, fn func() (Completion, error)) (Completion, int, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = budget.MaxElapsed
	withCtx := backoff.WithContext(bo, ctx)
	maxRetries := budget.MaxAttempts
	if maxRetries > 0 {
		maxRetries--
	}
	limited := backoff.WithMaxRetries(withCtx, maxRetries)

	attempts := 0
	var result Completion
	err := backoff.Retry(func() error {
		attempts++
		res, err := fn()
		if err == nil {
			result = res
			return nil
		}
		if !isRetryableStatus(err) {
			return backoff.Permanent(err)
		}
		return err
	}, limited)

	retryCount := attempts - 1
	if retryCount < 0 {
		retryCount = 0
	}
	if err != nil {
		return Completion{}, retryCount, errs.InferenceErrorf(err, "provider call failed after %d attempt(s)", attempts)
	}
	return result, retryCount, nil
}

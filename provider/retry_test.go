package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetriesSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	budget := RetryBudget{MaxAttempts: 5, MaxElapsed: time.Second}
	result, retryCount, err := retries(context.Background(), budget, func() (Completion, error) {
		attempts++
		if attempts < 3 {
			return Completion{}, statusError{cause: errors.New("rate limited"), code: 429}
		}
		return Completion{Text: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, 2, retryCount)
}

func TestRetriesGivesUpOnNonRetryableError(t *testing.T) {
	attempts := 0
	budget := RetryBudget{MaxAttempts: 5, MaxElapsed: time.Second}
	_, _, err := retries(context.Background(), budget, func() (Completion, error) {
		attempts++
		return Completion{}, errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(statusError{cause: errors.New("x"), code: 429}))
	assert.True(t, isRetryableStatus(statusError{cause: errors.New("x"), code: 503}))
	assert.False(t, isRetryableStatus(statusError{cause: errors.New("x"), code: 400}))
	assert.False(t, isRetryableStatus(errors.New("plain")))
}

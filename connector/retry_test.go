package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coded struct{ code int }

func (c coded) Error() string   { return "boom" }
func (c coded) StatusCode() int { return c.code }

func TestRetryableClassifiesStatusCodes(t *testing.T) {
	assert.True(t, Retryable(coded{code: 429}))
	assert.True(t, Retryable(coded{code: 503}))
	assert.False(t, Retryable(coded{code: 404}))
	assert.False(t, Retryable(errors.New("opaque")))
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	policy := DefaultRetryPolicy()
	policy.BaseDelay = 1
	policy.MaxDelay = 2
	policy.MaxElapsed = 1_000_000_000 // 1s in ns, generous for the test

	err := Do(context.Background(), policy, Retryable, func() error {
		attempts++
		if attempts < 3 {
			return coded{code: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), DefaultRetryPolicy(), Retryable, func() error {
		attempts++
		return coded{code: 404}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

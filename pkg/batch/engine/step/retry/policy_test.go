package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/dumpshift/pkg/batch/engine/step/retry"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := retry.NewRetryPolicy(3, time.Millisecond, []string{exception.IOFailure})

	assert.False(t, p.ShouldRetry(nil))
	assert.True(t, p.ShouldRetry(exception.NewBatchError("verify", "timeout", nil, false, true)))
	assert.True(t, p.ShouldRetry(exception.NewIOFailure("storage", "read", errors.New("EOF"))))
	assert.False(t, p.ShouldRetry(errors.New("syntax error")))
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := retry.NewRetryPolicy(0, 10*time.Millisecond, nil)
	assert.Equal(t, 1, p.GetMaxAttempts())
	assert.Equal(t, 10*time.Millisecond, p.GetBackoffInterval(2))
	assert.Equal(t, 20*time.Millisecond, p.GetBackoffInterval(3))
	assert.Equal(t, 40*time.Millisecond, p.GetBackoffInterval(4))
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := retry.NewRetryPolicy(3, time.Millisecond, nil)
	calls := 0
	err := retry.Do(context.Background(), "count rows", p, func(context.Context) error {
		calls++
		if calls < 3 {
			return exception.NewBatchError("verify", "connection reset", nil, false, true)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	p := retry.NewRetryPolicy(5, time.Millisecond, nil)
	calls := 0
	permanent := errors.New("relation does not exist")
	err := retry.Do(context.Background(), "count rows", p, func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	p := retry.NewRetryPolicy(5, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Do(ctx, "count rows", p, func(context.Context) error {
		calls++
		cancel()
		return exception.NewBatchError("verify", "busy", nil, false, true)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

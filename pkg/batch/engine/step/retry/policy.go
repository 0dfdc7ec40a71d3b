// Package retry decides whether an idempotent operation, such as the verification
// query or a storage read, is attempted again after a failure.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// RetryPolicy is an interface that defines retry logic.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the wait before the given attempt (starting from 1).
	GetBackoffInterval(attempt int) time.Duration
	// GetMaxAttempts returns the maximum number of attempts, the first one included.
	GetMaxAttempts() int
}

// NewRetryPolicy creates a policy with exponential backoff starting at initialInterval.
// Errors are retryable when they are BatchErrors flagged retryable or match one of
// retryableExceptions (see exception.IsErrorOfType).
func NewRetryPolicy(maxAttempts int, initialInterval time.Duration, retryableExceptions []string) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultRetryPolicy{
		maxAttempts:         maxAttempts,
		initialInterval:     initialInterval,
		retryableExceptions: retryableExceptions,
	}
}

type defaultRetryPolicy struct {
	maxAttempts         int
	initialInterval     time.Duration
	retryableExceptions []string
}

func (p *defaultRetryPolicy) GetMaxAttempts() int {
	return p.maxAttempts
}

func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var be *exception.BatchError
	if errors.As(err, &be) && be.IsRetryable() {
		return true
	}

	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// GetBackoffInterval doubles the initial interval on every attempt after the second.
func (p *defaultRetryPolicy) GetBackoffInterval(attempt int) time.Duration {
	if attempt <= 2 {
		return p.initialInterval
	}
	return p.initialInterval << uint(attempt-2)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts are
// exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, name string, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= policy.GetMaxAttempts(); attempt++ {
		if attempt > 1 {
			wait := policy.GetBackoffInterval(attempt)
			logger.Warnf("%s: attempt %d/%d failed (%v), retrying in %s", name, attempt-1, policy.GetMaxAttempts(), err, wait)
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(wait):
			}
		}
		if err = fn(ctx); err == nil || !policy.ShouldRetry(err) {
			return err
		}
	}
	return err
}

var _ RetryPolicy = (*defaultRetryPolicy)(nil)

package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/backoffice/internal/domain/shared"
)

// RetryPolicy bounds how often a conflicting transaction is re-run
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy mirrors the attempt budget of hosted document databases
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     25,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// RunWithRetry calls attempt until it succeeds, fails with an error other than
// ErrConflict, the attempt budget runs out or ctx is done. Exhaustion is reported as
// CONCURRENCY_CONFLICT.
func RunWithRetry(ctx context.Context, policy RetryPolicy, attempt func(ctx context.Context) error) error {
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := attempt(ctx)
		if err == nil || errors.Is(err, ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy.backOff(ctx))

	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
	}
	return err
}

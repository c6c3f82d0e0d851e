package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout         = 2 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 50 * time.Millisecond
	defaultMaxInterval     = time.Second
)

// RetryPolicy bounds how long a durable driver waits on its underlying store.
// Zero values fall back to package defaults.
type RetryPolicy struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64

	// InitialInterval is the first backoff delay between attempts.
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay between attempts.
	MaxInterval time.Duration
}

// DefaultRetryPolicy returns the policy used when a driver is configured
// without one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// Retry runs fn with a per-attempt timeout, retrying transient failures with
// exponential backoff. Errors that isTransient rejects are returned at once.
// When retries are exhausted the last error is returned as an
// UnavailableError for op and key. Cancellation of ctx itself is returned as
// the context error and is not retried.
func Retry(ctx context.Context, policy RetryPolicy, op, key string, isTransient func(error) bool, fn func(ctx context.Context) error) error {
	policy = policy.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0.1

	permanent := false
	err := backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
		defer cancel()

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			permanent = true
			return backoff.Permanent(ctx.Err())
		}

		if isTransient != nil && !isTransient(err) {
			permanent = true
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, policy.MaxRetries), ctx))

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case permanent:
		return fmt.Errorf("%s: %w", op, err)
	default:
		return &UnavailableError{Op: op, Key: key, Err: err}
	}
}

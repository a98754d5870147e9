package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// RetryPolicy bounds a single delivery: exponential backoff from
// InitialInterval, at most MaxRetries retries, everything within Timeout.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxRetries      uint64
	Timeout         time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Second,
		MaxRetries:      3,
		Timeout:         30 * time.Second,
	}
}

// Do runs op until it succeeds, returns a permanent error, or the policy is
// exhausted. An open circuit breaker ends the attempt immediately.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx))
}

// permanent marks an error that retrying cannot fix, such as a rejected
// request or missing configuration.
func permanent(err error) error {
	return backoff.Permanent(err)
}

func isPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}

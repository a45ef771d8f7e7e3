// Package retry wraps calls to external collaborators (stores, notifiers) with a
// per-attempt deadline and bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"agrofunnel/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retried call.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
	// OnRetry, when set, is called before sleeping between attempts.
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy allows three attempts starting at 50ms, each bounded by attemptTimeout.
func DefaultPolicy(attemptTimeout time.Duration) Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		AttemptTimeout:  attemptTimeout,
	}
}

// Do runs op until it succeeds, returns a permanent error, the attempts run out or
// ctx is done. Each attempt gets its own deadline derived from ctx.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(err, wait)
		}
	}

	return backoff.RetryNotify(func() error {
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, notify)
}

// Retryable reports whether err is worth another attempt. Store sentinels and
// workflow errors are final; everything else, including an attempt deadline, is not.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyExists):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case domain.KindOf(err) != "":
		return false
	}
	return true
}

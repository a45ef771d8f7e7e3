// Package lock serializes work on a single funnel session across API replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrofunnel/internal/domain"
)

const (
	DefaultTTL            = 10 * time.Second
	DefaultAcquireTimeout = 3 * time.Second
	pollInterval          = 25 * time.Millisecond
)

// Lease is a held lock. Extend pushes its expiry out by the TTL again and reports
// false once another holder owns the key. Release is safe to call after expiry.
type Lease struct {
	TTL     time.Duration
	Extend  func(ctx context.Context) (bool, error)
	Release func(ctx context.Context) error
}

// Locker grants exclusive access to a key. Acquire waits until the lock is free,
// the acquisition timeout elapses (domain.ErrBusy) or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (*Lease, error)
}

// WithLock runs fn while holding key. The lease is renewed every third of its TTL
// for as long as fn runs; if it cannot be renewed, fn's context is cancelled so no
// further writes go out without the lock.
func WithLock(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.WithoutCancel(ctx))
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(runCtx, key, lease, stop, cancel)
	}()

	err = fn(runCtx)
	close(stop)
	<-done

	if err != nil && errors.Is(context.Cause(runCtx), errLeaseLost) {
		return lost(key)
	}
	return err
}

var errLeaseLost = errors.New("lock lease lost")

func lost(key string) error {
	return &domain.Error{Kind: domain.KindBusy, Message: fmt.Sprintf("%s lock expired while the request was running, try again", key), Err: errLeaseLost}
}

// keepAlive extends the lease until stop closes. A failed extension is retried on
// the next tick until a full TTL has passed since the last successful one.
func keepAlive(ctx context.Context, key string, lease *Lease, stop <-chan struct{}, cancel context.CancelCauseFunc) {
	if lease.Extend == nil || lease.TTL <= 0 {
		return
	}
	ticker := time.NewTicker(lease.TTL / 3)
	defer ticker.Stop()
	renewed := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		ok, err := lease.Extend(ctx)
		switch {
		case err == nil && ok:
			renewed = time.Now()
		case err == nil || time.Since(renewed) >= lease.TTL:
			cancel(fmt.Errorf("%s: %w", key, errLeaseLost))
			return
		}
	}
}

// SessionKey is the lock key for a funnel session.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

func busy(key string) error {
	return domain.NewError(domain.KindBusy, "%s is being modified by another request, try again", key)
}

// wait polls try until it succeeds, fails, or the acquire window closes.
func wait(ctx context.Context, key string, timeout time.Duration, try func(context.Context) (bool, error)) error {
	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := try(acquireCtx)
		if err != nil {
			if ctx.Err() == nil && acquireCtx.Err() != nil {
				return busy(key)
			}
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-acquireCtx.Done():
			return busy(key)
		case <-ticker.C:
		}
	}
}

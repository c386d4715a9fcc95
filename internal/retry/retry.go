// Package retry runs an operation a bounded number of times with a fixed
// backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy describes how often an operation is attempted and how long to
// wait between attempts. The zero value makes a single attempt.
type Policy struct {
	Attempts int
	Backoff  time.Duration
	// Sleep defaults to the package Sleep when nil.
	Sleep SleepFunc
}

// Do calls op until it returns nil, returns a Permanent error, or the
// attempts are used up. attempt starts at 1. The backoff is applied only
// between attempts. The returned error wraps the last failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var last error
	for i := 1; i <= attempts; i++ {
		last = op(ctx, i)
		if last == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(last, &perm) {
			return perm.err
		}
		if i < attempts {
			if err := sleep(ctx, p.Backoff); err != nil {
				return fmt.Errorf("interrupted after %d attempt(s): %w", i, last)
			}
		}
	}
	return fmt.Errorf("after %d attempt(s): %w", attempts, last)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the inner error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Package httputil provides transient-failure retry support for registry
// HTTP calls.
package httputil

import (
	"context"
	"errors"
	"time"
)

// Temporary marks an error as transient. The registry client wraps
// connection failures and 5xx statuses with it so [Backoff.Do] knows the
// call is worth repeating; anything unwrapped is treated as permanent.
type Temporary struct{ Err error }

func (e *Temporary) Error() string { return e.Err.Error() }
func (e *Temporary) Unwrap() error { return e.Err }

// Backoff is a retry policy with exponentially growing sleeps between
// attempts. The zero value makes three attempts with a first sleep of one
// second, which suits registry metadata calls.
type Backoff struct {
	Attempts int           // total tries, including the first
	Delay    time.Duration // sleep before the second try; doubles after each failure
}

// Do runs fn until it succeeds, returns a permanent error, exhausts the
// policy's attempts, or ctx is cancelled mid-sleep. The last error seen is
// returned on exhaustion.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	left := b.Attempts
	if left < 1 {
		left = 3
	}
	delay := b.Delay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.As(err, new(*Temporary)) {
			return err
		}
		if left--; left == 0 {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}

// RetryWithBackoff runs fn under the default policy.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Backoff{}.Do(ctx, fn)
}

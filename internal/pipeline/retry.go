package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"time"
)

// IsRetryable checks if an error is worth retrying: network failures and
// timeouts talking to the report store.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// retry calls fn up to MaxRetries times while it fails with a retryable
// error. wait is Backoff in production.
func retry(ctx context.Context, wait func(int) time.Duration, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(wait(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

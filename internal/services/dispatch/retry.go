package dispatch

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy retries an operation a bounded number of times with a fixed
// backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy sends once and retries once after a short delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: 3 * time.Second}
}

// Do runs op until it succeeds or the attempts are exhausted. It returns
// the last error, or the context error when cancelled while waiting.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(p.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

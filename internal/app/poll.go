package app

import (
	"context"
	"fmt"
	"time"
)

// pollUntil calls fn at the given interval until it reports done, the
// wall-clock budget runs out, or ctx is cancelled. The iteration count is
// bounded up front by timeout/interval so the loop provably terminates.
func pollUntil(ctx context.Context, interval, timeout time.Duration, fn func(context.Context) (bool, error)) error {
	if interval <= 0 || timeout <= 0 {
		return fmt.Errorf("%w: poll interval and timeout must be positive", ErrInvalidInput)
	}

	maxAttempts := int(timeout/interval) + 1
	deadline := time.Now().Add(timeout)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().Add(interval).After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return ErrSyncTimeout
}

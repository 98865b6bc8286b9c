package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/danmuck/arqlink/internal/protocol"
)

// AttemptFunc performs one transmission and waits for its outcome. The context
// expires after the policy's attempt timeout. Returning nil ends the retry loop
// successfully.
type AttemptFunc func(ctx context.Context, attempt int) error

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Retry runs fn until it succeeds, returns a permanent error, or the attempt
// budget is spent. It returns the number of attempts made. Exhaustion yields an
// error wrapping both protocol.ErrDeliveryExhausted and the last attempt error.
func Retry(ctx context.Context, policy RetryPolicy, rng *rand.Rand, fn AttemptFunc) (int, error) {
	if err := policy.Validate(); err != nil {
		return 0, err
	}
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		err := fn(attemptCtx, attempt)
		cancel()
		if err == nil {
			return attempt, nil
		}
		if IsPermanent(err) {
			return attempt, errors.Unwrap(err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, ctxErr
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, NextBackoffDelay(policy.Backoff, attempt, rng)); err != nil {
			return attempt, err
		}
	}
	return policy.MaxAttempts, fmt.Errorf("%w after %d attempts: %w", protocol.ErrDeliveryExhausted, policy.MaxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

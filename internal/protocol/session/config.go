package session

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts    = 5
	DefaultAttemptTimeout = time.Second
	DefaultRetryDelay     = time.Second
)

var (
	ErrInvalidMaxAttempts    = errors.New("session: max attempts must be at least 1")
	ErrInvalidAttemptTimeout = errors.New("session: attempt timeout must be positive")
	ErrInvalidBackoff        = errors.New("session: invalid backoff")
)

// RetryPolicy bounds one delivery: how many transmissions, how long each waits
// for a reply, and how long to pause between them.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        BackoffConfig
}

// DefaultRetryPolicy is five attempts, one second each, one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		AttemptTimeout: DefaultAttemptTimeout,
		Backoff:        FixedBackoff(DefaultRetryDelay),
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxAttempts, p.MaxAttempts)
	}
	if p.AttemptTimeout <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAttemptTimeout, p.AttemptTimeout)
	}
	if p.Backoff.InitialDelay < 0 || p.Backoff.MaxDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidBackoff)
	}
	return nil
}

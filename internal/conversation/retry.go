package conversation

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/drill-ai/cli/internal/powerdrill"
)

// RetryPolicy controls how transient fetches are retried with exponential
// backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy returns the policy used for overview fetches:
// 3 attempts, 1s initial delay, 2x multiplier (delays of 1s then 2s).
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
	}
}

// NextDelay returns the backoff delay for the given attempt number (1-indexed).
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
}

// Execute runs fn up to MaxAttempts times, sleeping between retries with
// exponential backoff. Credential rejections are never retried. Returns nil
// on success or the last error once attempts are exhausted.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var authErr *powerdrill.AuthError
		if errors.As(err, &authErr) {
			return err
		}

		if attempt < p.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.NextDelay(attempt)):
			}
		}
	}
	return lastErr
}

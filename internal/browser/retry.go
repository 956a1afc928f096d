// File: internal/browser/retry.go
package browser

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sleeper pauses for d or until the context ends. Injectable so the backoff
// schedule is testable without waiting it out.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy runs an operation through a bounded attempt loop with
// exponential backoff. The loop is a small explicit state machine:
// attempting(n) moves to backoff(delay) on failure and back to
// attempting(n+1), until it ends in succeeded or exhausted.
type RetryPolicy struct {
	attempts int
	initial  time.Duration
	sleep    Sleeper
	logger   *zap.Logger
}

// NewRetryPolicy builds a policy with the real clock.
func NewRetryPolicy(attempts int, initial time.Duration, logger *zap.Logger) *RetryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryPolicy{
		attempts: attempts,
		initial:  initial,
		sleep:    contextSleep,
		logger:   logger.Named("retry"),
	}
}

// WithSleeper substitutes the pause function. Test hook.
func (p *RetryPolicy) WithSleeper(s Sleeper) *RetryPolicy {
	p.sleep = s
	return p
}

// Do runs op up to the attempt bound. It returns the number of retries that
// preceded the successful attempt, or the last error verbatim once every
// attempt has failed. The final error is never wrapped so the caller sees the
// real underlying failure.
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	var lastErr error
	delay := p.initial

	for attempt := 1; attempt <= p.attempts; attempt++ {
		p.logger.Debug("attempting", zap.Int("attempt", attempt), zap.Int("max", p.attempts))
		lastErr = op(ctx)
		if lastErr == nil {
			return attempt - 1, nil
		}
		if ctx.Err() != nil {
			return attempt - 1, lastErr
		}
		if attempt == p.attempts {
			break
		}

		p.logger.Debug("backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr))
		if err := p.sleep(ctx, delay); err != nil {
			return attempt, lastErr
		}
		delay *= 2
	}
	return p.attempts - 1, lastErr
}

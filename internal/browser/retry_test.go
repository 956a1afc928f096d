// File: internal/browser/retry_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSleeper captures the backoff schedule instead of waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestRetry_FirstAttemptSucceeds(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(3, time.Second, zap.NewNop()).WithSleeper(sleeper.sleep)

	retries, err := p.Do(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, retries)
	assert.Empty(t, sleeper.delays)
}

func TestRetry_FailTwiceThenSucceed(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(3, time.Second, zap.NewNop()).WithSleeper(sleeper.sleep)

	calls := 0
	retries, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("frame detached")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, retries)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays,
		"backoff doubles from the initial delay")
}

func TestRetry_ExhaustionPropagatesLastErrorVerbatim(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(3, time.Second, zap.NewNop()).WithSleeper(sleeper.sleep)

	attempt := 0
	finalErr := errors.New("net::ERR_NAME_NOT_RESOLVED at attempt 3")
	retries, err := p.Do(context.Background(), func(context.Context) error {
		attempt++
		if attempt == 3 {
			return finalErr
		}
		return errors.New("earlier failure")
	})

	assert.Equal(t, 2, retries)
	require.Error(t, err)
	assert.Same(t, finalErr, err, "the last error must be propagated unwrapped")
	assert.Len(t, sleeper.delays, 2, "no backoff after the final attempt")
}

func TestRetry_ContextCancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewRetryPolicy(5, time.Second, zap.NewNop()).WithSleeper(
		func(context.Context, time.Duration) error { return context.Canceled })

	calls := 0
	opErr := errors.New("boom")
	_, err := p.Do(ctx, func(context.Context) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return opErr
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "no further attempts after cancellation")
}

func TestRetry_SingleAttemptPolicy(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(1, time.Second, zap.NewNop()).WithSleeper(sleeper.sleep)

	opErr := errors.New("refused")
	retries, err := p.Do(context.Background(), func(context.Context) error { return opErr })
	assert.Equal(t, 0, retries)
	assert.Same(t, opErr, err)
	assert.Empty(t, sleeper.delays)
}

func TestContextSleep(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, contextSleep(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("cancellation wins", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, contextSleep(ctx, time.Minute), context.Canceled)
	})
}

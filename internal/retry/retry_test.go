package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestDo_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastConfig(), nil, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &ErrUnavailable{Err: errors.New("down")}
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastConfig(), func(err error) bool {
		return !errors.Is(err, permanent)
	}, func(context.Context) (string, error) {
		calls++
		return "", permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(), nil, func(context.Context) (int, error) {
		calls++
		return 0, &ErrUnavailable{Err: errors.New("down")}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(), nil, func(context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledWhileWaiting(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialWait = time.Hour
	cfg.MaxWait = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, cfg, nil, func(context.Context) (int, error) {
		return 0, &ErrUnavailable{Err: errors.New("down")}
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_RespectsRetryAfter(t *testing.T) {
	err := &ErrRateLimit{RetryAfter: 42 * time.Millisecond}
	assert.Equal(t, 42*time.Millisecond, Backoff(fastConfig(), 0, err))
}

func TestBackoff_CappedAtMaxWait(t *testing.T) {
	cfg := fastConfig()
	got := Backoff(cfg, 10, errors.New("x"))
	// MaxWait plus at most 20% jitter.
	assert.LessOrEqual(t, got, cfg.MaxWait+cfg.MaxWait/5)
}

func TestFromStatus(t *testing.T) {
	var rl *ErrRateLimit
	assert.ErrorAs(t, FromStatus("openai", 429, errors.New("slow down")), &rl)

	var un *ErrUnavailable
	err := FromStatus("openai", 503, errors.New("oops"))
	require.ErrorAs(t, err, &un)
	assert.Contains(t, err.Error(), "openai unavailable")
}

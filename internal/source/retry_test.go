package source

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video_notifier/internal/config"
)

func newTestRetrier(attempts int) *Retrier {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRetrier(config.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}, logger)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	r := newTestRetrier(3)
	calls := 0

	got, err := Do(context.Background(), r, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("timeout")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	r := newTestRetrier(2)
	calls := 0
	boom := errors.New("boom")

	_, err := Do(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentErrorStops(t *testing.T) {
	r := newTestRetrier(5)
	calls := 0
	notFound := errors.New("not found")

	_, err := Do(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, Permanent(notFound)
	})

	assert.Equal(t, notFound, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	r := NewRetrier(config.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Do(ctx, r, func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrier_Backoff(t *testing.T) {
	r := newTestRetrier(5)

	assert.Equal(t, time.Millisecond, r.Backoff(1))
	assert.Equal(t, 2*time.Millisecond, r.Backoff(2))
	assert.Equal(t, 4*time.Millisecond, r.Backoff(3))
	assert.Equal(t, 4*time.Millisecond, r.Backoff(6))
}

func TestRetrier_BackoffStaysCappedForManyAttempts(t *testing.T) {
	r := newTestRetrier(200)

	for _, attempt := range []int{40, 64, 100, 200} {
		assert.Equal(t, 4*time.Millisecond, r.Backoff(attempt), "attempt %d", attempt)
	}
}

func TestNewRetrier_AtLeastOneAttempt(t *testing.T) {
	r := newTestRetrier(0)
	calls := 0

	_, err := Do(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("x")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"video_notifier/internal/config"
)

// Retrier runs listing requests with a bounded number of attempts and exponential backoff.
type Retrier struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func NewRetrier(cfg config.RetryConfig, logger *slog.Logger) *Retrier {
	return &Retrier{
		maxAttempts:    max(cfg.MaxAttempts, 1),
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, attempts run out or ctx is done.
func Do[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var err error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		var result T
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}

		if attempt == r.maxAttempts {
			break
		}

		backoff := r.Backoff(attempt)
		r.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return zero, fmt.Errorf("after %d attempts: %w", r.maxAttempts, err)
}

// Backoff returns the pause after the given failed attempt.
func (r *Retrier) Backoff(attempt int) time.Duration {
	backoff := r.initialBackoff
	for i := 1; i < attempt; i++ {
		if backoff >= r.maxBackoff {
			return r.maxBackoff
		}
		backoff *= 2
	}
	return min(backoff, r.maxBackoff)
}

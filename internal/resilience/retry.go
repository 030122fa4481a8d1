package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first call.
	// Zero means no retries. Default: 3.
	MaxRetries int

	// BaseDelay is the delay before the first retry. Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps the exponential part of the delay. Default: 30s.
	MaxDelay time.Duration

	// Jitter is the upper bound of the uniform random delay added to every
	// backoff. Default: 1s.
	Jitter time.Duration

	// ShouldRetry optionally overrides the default check. If nil, Retryable
	// is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the retry number
	// (1-based), the computed delay and the error.
	OnRetry func(retry int, delay time.Duration, err error)
}

// DefaultRetryConfig returns a sensible retry configuration for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     time.Second,
	}
}

// Do executes fn with retry logic according to cfg. Context cancellation
// stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. On success the value
// from the successful call is returned. After the retries are exhausted it
// returns the zero value and the last error, never a partial value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = Retryable
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !shouldRetry(lastErr) {
			return zero, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt >= cfg.MaxRetries {
			break
		}

		delay := computeBackoff(attempt+1, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return cfg
}

// computeBackoff returns the delay before retry k (1-based):
// BaseDelay * 2^(k-1) + uniform(0, Jitter).
func computeBackoff(retry int, cfg RetryConfig) time.Duration {
	if retry < 1 {
		retry = 1
	}
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(retry-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter > 0 {
		delay += rand.Float64() * float64(cfg.Jitter)
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(provider string) func(int, time.Duration, error) {
	return func(retry int, delay time.Duration, err error) {
		zap.L().Warn("retrying provider call",
			zap.String("provider", provider),
			zap.Int("retry", retry),
			zap.Duration("delay", delay),
			zap.String("error_class", Classify(err)),
			zap.Error(err),
		)
	}
}

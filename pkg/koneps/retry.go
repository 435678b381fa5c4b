package koneps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	konepsRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "koneps_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	konepsRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "koneps_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// RetryConfig holds the retry policy for standalone upstream calls.
// The delay between attempts is flat, not exponential.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first).
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// CallWithRetry runs fn up to cfg.MaxAttempts times, pausing cfg.Delay
// between attempts. Only transient failures (timeout, connection, 5xx)
// are retried; upstream rejections and 4xx responses are returned
// immediately. After exhaustion the last failure is surfaced.
func CallWithRetry(ctx context.Context, logger zerolog.Logger, cfg RetryConfig, fn func() (*PageResult, error)) (*PageResult, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		res, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return res, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return nil, err
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		konepsRetriesTotal.WithLabelValues(string(apiErr.Kind)).Inc()
		logger.Debug().
			Str("kind", string(apiErr.Kind)).
			Int("attempt", attempt).
			Dur("delay", cfg.Delay).
			Msg("Retrying request after delay")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(cfg.Delay):
		}
	}

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		konepsRetryExhaustedTotal.WithLabelValues(string(apiErr.Kind)).Inc()
	}
	logger.Warn().
		Int("max_attempts", cfg.MaxAttempts).
		Err(lastErr).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}

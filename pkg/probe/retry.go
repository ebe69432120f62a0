package probe

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/resilientsys/degrade/pkg/degradation"
	"github.com/resilientsys/degrade/pkg/logging"
)

// RetryConfig controls the retry behavior of WithRetry.
type RetryConfig struct {
	// MaxAttempts is the total number of probe attempts per check
	MaxAttempts int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration
	// BackoffMultiplier grows the delay between attempts
	BackoffMultiplier float64
	// Jitter adds randomness to delays to avoid probe synchronization
	Jitter bool
}

// DefaultRetryConfig returns the default probe retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// WithRetry wraps a probe so that transient failures are retried with
// exponential backoff before a check is declared unhealthy. Only the last
// attempt's error is surfaced.
func WithRetry(p degradation.Probe, config RetryConfig) degradation.Probe {
	if config.MaxAttempts <= 1 {
		return p
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	logger := logging.GetLogger()

	return func(ctx context.Context) error {
		var lastErr error

		for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			lastErr = p(ctx)
			if lastErr == nil {
				return nil
			}
			if attempt == config.MaxAttempts {
				break
			}

			delay := backoffDelay(config, attempt)
			logger.Debug("Probe attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", config.MaxAttempts,
				"delay", delay.String(),
				"error", lastErr.Error(),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		return lastErr
	}
}

func backoffDelay(config RetryConfig, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		delay += rand.Float64() * 0.1 * delay
	}
	return time.Duration(delay)
}

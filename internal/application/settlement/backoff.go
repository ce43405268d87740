package settlement

import (
	"math"
	"math/rand"
	"time"

	"github.com/arvindkp/settlements/internal/providers"
)

// BackoffConfig bounds the retry delay computation.
type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	MinDelay  time.Duration
}

// DefaultBackoffConfig matches the pipeline's default retry tuning.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseDelay: 2 * time.Second,
		MaxDelay:  60 * time.Second,
		MinDelay:  100 * time.Millisecond,
	}
}

// RetryDelay computes the redelivery delay for the given attempt number
// (1-based) using the provider's backoff profile: exponential growth clamped
// to MaxDelay, uniformly jittered, floored at MinDelay.
func RetryDelay(cfg BackoffConfig, profile providers.BackoffProfile, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}

	delay := float64(cfg.BaseDelay) * math.Pow(profile.Multiplier, float64(attempts-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	// Uniform jitter in [-Jitter, +Jitter] of the clamped delay.
	jitter := (rand.Float64()*2 - 1) * profile.Jitter * delay
	delay += jitter

	if delay < float64(cfg.MinDelay) {
		delay = float64(cfg.MinDelay)
	}
	return time.Duration(delay)
}

// VisibilityTimeout scales the requested lease duration with the attempt
// number so messages known to need more processing time keep their lease
// longer. The lease is fixed at receive time by the queue, so this only
// applies at the batch-receive boundary.
func VisibilityTimeout(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	v := time.Duration(float64(base) * (1 + 0.5*float64(attempt)))
	if v > max {
		return max
	}
	return v
}

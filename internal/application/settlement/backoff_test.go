package settlement

import (
	"testing"
	"time"

	"github.com/arvindkp/settlements/internal/providers"
	"github.com/stretchr/testify/assert"
)

func TestRetryDelay_ExponentialGrowth(t *testing.T) {
	cfg := BackoffConfig{
		BaseDelay: 2 * time.Second,
		MaxDelay:  60 * time.Second,
		MinDelay:  100 * time.Millisecond,
	}
	profile := providers.BackoffProfile{Multiplier: 2.0, Jitter: 0}

	assert.Equal(t, 2*time.Second, RetryDelay(cfg, profile, 1))
	assert.Equal(t, 4*time.Second, RetryDelay(cfg, profile, 2))
	assert.Equal(t, 8*time.Second, RetryDelay(cfg, profile, 3))
}

func TestRetryDelay_ClampsToMaxDelay(t *testing.T) {
	cfg := BackoffConfig{
		BaseDelay: 2 * time.Second,
		MaxDelay:  10 * time.Second,
		MinDelay:  100 * time.Millisecond,
	}
	profile := providers.BackoffProfile{Multiplier: 2.0, Jitter: 0}

	assert.Equal(t, 10*time.Second, RetryDelay(cfg, profile, 5))
	assert.Equal(t, 10*time.Second, RetryDelay(cfg, profile, 50))
}

func TestRetryDelay_JitterStaysInBounds(t *testing.T) {
	cfg := BackoffConfig{
		BaseDelay: 2 * time.Second,
		MaxDelay:  60 * time.Second,
		MinDelay:  100 * time.Millisecond,
	}
	profile := providers.BackoffProfile{Multiplier: 2.0, Jitter: 0.2}

	for i := 0; i < 100; i++ {
		d := RetryDelay(cfg, profile, 2)
		assert.GreaterOrEqual(t, d, time.Duration(float64(4*time.Second)*0.8))
		assert.LessOrEqual(t, d, time.Duration(float64(4*time.Second)*1.2))
	}
}

func TestRetryDelay_FloorsAtMinDelay(t *testing.T) {
	cfg := BackoffConfig{
		BaseDelay: 50 * time.Millisecond,
		MaxDelay:  60 * time.Second,
		MinDelay:  100 * time.Millisecond,
	}
	profile := providers.BackoffProfile{Multiplier: 1.0, Jitter: 0}

	assert.Equal(t, 100*time.Millisecond, RetryDelay(cfg, profile, 1))
}

func TestRetryDelay_TreatsNonPositiveAttemptsAsFirst(t *testing.T) {
	cfg := DefaultBackoffConfig()
	profile := providers.BackoffProfile{Multiplier: 2.0, Jitter: 0}

	assert.Equal(t, RetryDelay(cfg, profile, 1), RetryDelay(cfg, profile, 0))
	assert.Equal(t, RetryDelay(cfg, profile, 1), RetryDelay(cfg, profile, -3))
}

func TestRetryDelay_ProviderProfilesDiverge(t *testing.T) {
	cfg := BackoffConfig{
		BaseDelay: 2 * time.Second,
		MaxDelay:  60 * time.Second,
		MinDelay:  100 * time.Millisecond,
	}
	gentle := providers.BackoffProfile{Multiplier: 1.6, Jitter: 0}
	steep := providers.BackoffProfile{Multiplier: 2.0, Jitter: 0}

	assert.Less(t, RetryDelay(cfg, gentle, 4), RetryDelay(cfg, steep, 4))
}

func TestVisibilityTimeout(t *testing.T) {
	base := 30 * time.Second
	max := 120 * time.Second

	assert.Equal(t, 30*time.Second, VisibilityTimeout(base, max, 0))
	assert.Equal(t, 45*time.Second, VisibilityTimeout(base, max, 1))
	assert.Equal(t, 60*time.Second, VisibilityTimeout(base, max, 2))
	assert.Equal(t, 120*time.Second, VisibilityTimeout(base, max, 10))
	assert.Equal(t, 30*time.Second, VisibilityTimeout(base, max, -1))
}

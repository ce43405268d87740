package providers

// BackoffProfile models a downstream's recovery characteristics. A provider
// that recovers quickly gets a gentler multiplier so retries reach it sooner.
type BackoffProfile struct {
	// Multiplier is the exponential growth factor per failed attempt.
	Multiplier float64
	// Jitter is the uniform jitter fraction applied to the computed delay.
	Jitter float64
}

// DefaultBackoffProfile is used for provider names without a known profile.
var DefaultBackoffProfile = BackoffProfile{Multiplier: 2.0, Jitter: 0.2}

func defaultProfiles() map[string]BackoffProfile {
	return map[string]BackoffProfile{
		"razorpay_mock": {Multiplier: 1.6, Jitter: 0.10},
		"cashfree_mock": {Multiplier: 1.8, Jitter: 0.15},
		"mock_provider": {Multiplier: 2.0, Jitter: 0.20},
	}
}

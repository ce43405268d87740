package providers

import (
	"errors"
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/sony/gobreaker/v2"
)

// errReportedFailure is the probe error used to feed charge outcomes into a
// provider's circuit breaker.
var errReportedFailure = errors.New("provider charge failed")

// RegistryConfig tunes the per-provider circuit breakers.
type RegistryConfig struct {
	// FailureThreshold is the number of consecutive failures that puts a
	// provider into cooldown.
	FailureThreshold uint32
	// Cooldown is how long a tripped provider stays excluded from selection.
	Cooldown time.Duration
}

// DefaultRegistryConfig matches the canonical health-gate tuning.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		FailureThreshold: 3,
		Cooldown:         60 * time.Second,
	}
}

// Registry holds the provider fleet in priority order and gates selection on
// per-provider health. Each provider gets its own circuit breaker, so outcome
// reports for unrelated providers never contend on a shared lock.
type Registry struct {
	ordered  []Provider
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
	profiles map[string]BackoffProfile
	fallback BackoffProfile
}

// NewRegistry builds a registry over the given providers. Slice order is
// priority order for Select.
func NewRegistry(cfg RegistryConfig, providersList ...Provider) *Registry {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultRegistryConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultRegistryConfig().Cooldown
	}

	r := &Registry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
		profiles: defaultProfiles(),
		fallback: DefaultBackoffProfile,
	}
	for _, p := range providersList {
		r.register(p, cfg)
	}
	return r
}

func (r *Registry) register(p Provider, cfg RegistryConfig) {
	r.ordered = append(r.ordered, p)
	// Interval 0 keeps consecutive-failure counts across closed-state time
	// windows. MaxRequests 1 means a single half-open success closes the
	// breaker again.
	r.breakers[p.Name()] = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	})
}

// Select returns the first provider not currently in cooldown, in priority
// order, or nil when every provider is cooling down. It never fails; the
// caller decides how to route the no-provider case.
func (r *Registry) Select(t *transaction.Transaction) Provider {
	for _, p := range r.ordered {
		if r.breakers[p.Name()].State() != gobreaker.StateOpen {
			return p
		}
	}
	return nil
}

// ReportSuccess records a successful charge for the provider, clearing its
// consecutive-failure count.
func (r *Registry) ReportSuccess(name string) {
	cb, ok := r.breakers[name]
	if !ok {
		return
	}
	_, _ = cb.Execute(func() (struct{}, error) {
		return struct{}{}, nil
	})
}

// ReportFailure records a failed charge for the provider. Once the failure
// threshold is reached the provider enters cooldown; reports against a
// provider already in cooldown are dropped by the breaker.
func (r *Registry) ReportFailure(name string) {
	cb, ok := r.breakers[name]
	if !ok {
		return
	}
	_, _ = cb.Execute(func() (struct{}, error) {
		return struct{}{}, errReportedFailure
	})
}

// Healthy reports whether the named provider is currently selectable.
func (r *Registry) Healthy(name string) bool {
	cb, ok := r.breakers[name]
	if !ok {
		return false
	}
	return cb.State() != gobreaker.StateOpen
}

// BackoffProfile returns the retry profile for the named provider, falling
// back to the default profile for unrecognized names.
func (r *Registry) BackoffProfile(name string) BackoffProfile {
	if p, ok := r.profiles[name]; ok {
		return p
	}
	return r.fallback
}

// SetBackoffProfile overrides the profile for a provider name.
func (r *Registry) SetBackoffProfile(name string, p BackoffProfile) {
	r.profiles[name] = p
}

// Providers returns the fleet in priority order.
func (r *Registry) Providers() []Provider {
	return r.ordered
}

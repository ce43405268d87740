package providers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
)

// MockProvider simulates a downstream payment provider with configurable
// latency and success characteristics.
type MockProvider struct {
	name        string
	successRate float64 // 0.0 to 1.0
	minLatency  time.Duration
	maxLatency  time.Duration
	refPrefix   string
}

type MockProviderOption func(*MockProvider)

func WithSuccessRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.successRate = rate }
}

func WithLatencyRange(min, max time.Duration) MockProviderOption {
	return func(p *MockProvider) {
		p.minLatency = min
		p.maxLatency = max
	}
}

func WithRefPrefix(prefix string) MockProviderOption {
	return func(p *MockProvider) { p.refPrefix = prefix }
}

func NewMockProvider(name string, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:        name,
		successRate: 1.0,
		minLatency:  0,
		maxLatency:  0,
		refPrefix:   strings.ToUpper(name),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) Charge(ctx context.Context, t *transaction.Transaction) (*ChargeResult, error) {
	// Simulate network latency
	if d := p.latency(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if rand.Float64() >= p.successRate {
		return &ChargeResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("%s-failure", strings.ReplaceAll(p.name, "_", "-")),
		}, nil
	}

	return &ChargeResult{
		Success:     true,
		ProviderRef: fmt.Sprintf("%s-%05d", p.refPrefix, rand.Intn(100000)),
	}, nil
}

func (p *MockProvider) latency() time.Duration {
	if p.maxLatency <= p.minLatency {
		return p.minLatency
	}
	return p.minLatency + time.Duration(rand.Int63n(int64(p.maxLatency-p.minLatency)))
}

// DefaultProviders returns the simulated provider fleet in priority order.
// Latencies and success rates mirror the observed behavior of the real
// integrations they stand in for.
func DefaultProviders() []Provider {
	return []Provider{
		NewMockProvider("razorpay_mock",
			WithSuccessRate(0.80),
			WithLatencyRange(150*time.Millisecond, 400*time.Millisecond),
			WithRefPrefix("RAZORPAY"),
		),
		NewMockProvider("cashfree_mock",
			WithSuccessRate(0.75),
			WithLatencyRange(120*time.Millisecond, 320*time.Millisecond),
			WithRefPrefix("CASHFREE"),
		),
		NewMockProvider("mock_provider",
			WithSuccessRate(0.70),
			WithLatencyRange(200*time.Millisecond, 500*time.Millisecond),
			WithRefPrefix("MOCK"),
		),
	}
}

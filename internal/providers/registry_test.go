package providers

import (
	"context"
	"testing"
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction() *transaction.Transaction {
	tx, _ := transaction.New("client-1", 5000, "INR", "", nil)
	return tx
}

func TestRegistry_Select_PriorityOrder(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(),
		NewMockProvider("primary"),
		NewMockProvider("secondary"),
	)

	p := r.Select(testTransaction())
	require.NotNil(t, p)
	assert.Equal(t, "primary", p.Name())
}

func TestRegistry_Select_SkipsTrippedProvider(t *testing.T) {
	cfg := RegistryConfig{FailureThreshold: 3, Cooldown: time.Minute}
	r := NewRegistry(cfg,
		NewMockProvider("primary"),
		NewMockProvider("secondary"),
	)

	for i := 0; i < 3; i++ {
		r.ReportFailure("primary")
	}

	assert.False(t, r.Healthy("primary"))
	assert.True(t, r.Healthy("secondary"))

	p := r.Select(testTransaction())
	require.NotNil(t, p)
	assert.Equal(t, "secondary", p.Name())
}

func TestRegistry_Select_AllTripped(t *testing.T) {
	cfg := RegistryConfig{FailureThreshold: 2, Cooldown: time.Minute}
	r := NewRegistry(cfg,
		NewMockProvider("primary"),
		NewMockProvider("secondary"),
	)

	for i := 0; i < 2; i++ {
		r.ReportFailure("primary")
		r.ReportFailure("secondary")
	}

	assert.Nil(t, r.Select(testTransaction()))
}

func TestRegistry_FailuresBelowThresholdKeepProviderHealthy(t *testing.T) {
	cfg := RegistryConfig{FailureThreshold: 3, Cooldown: time.Minute}
	r := NewRegistry(cfg, NewMockProvider("primary"))

	r.ReportFailure("primary")
	r.ReportFailure("primary")
	assert.True(t, r.Healthy("primary"))
}

func TestRegistry_SuccessResetsConsecutiveFailures(t *testing.T) {
	cfg := RegistryConfig{FailureThreshold: 3, Cooldown: time.Minute}
	r := NewRegistry(cfg, NewMockProvider("primary"))

	r.ReportFailure("primary")
	r.ReportFailure("primary")
	r.ReportSuccess("primary")
	r.ReportFailure("primary")
	r.ReportFailure("primary")

	// The success in between means the streak never reached three.
	assert.True(t, r.Healthy("primary"))
}

func TestRegistry_CooldownExpiry(t *testing.T) {
	cfg := RegistryConfig{FailureThreshold: 2, Cooldown: 50 * time.Millisecond}
	r := NewRegistry(cfg, NewMockProvider("primary"))

	r.ReportFailure("primary")
	r.ReportFailure("primary")
	assert.False(t, r.Healthy("primary"))

	time.Sleep(60 * time.Millisecond)

	// After the cooldown the provider is selectable again (half-open probe).
	p := r.Select(testTransaction())
	require.NotNil(t, p)
	assert.Equal(t, "primary", p.Name())

	// A success in half-open closes the breaker for good.
	r.ReportSuccess("primary")
	assert.True(t, r.Healthy("primary"))
}

func TestRegistry_HalfOpenFailureReopens(t *testing.T) {
	cfg := RegistryConfig{FailureThreshold: 2, Cooldown: 50 * time.Millisecond}
	r := NewRegistry(cfg, NewMockProvider("primary"))

	r.ReportFailure("primary")
	r.ReportFailure("primary")
	time.Sleep(60 * time.Millisecond)

	require.NotNil(t, r.Select(testTransaction()))
	r.ReportFailure("primary")
	assert.False(t, r.Healthy("primary"))
}

func TestRegistry_ReportUnknownProviderIsNoop(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), NewMockProvider("primary"))

	r.ReportFailure("ghost")
	r.ReportSuccess("ghost")
	assert.False(t, r.Healthy("ghost"))
	assert.True(t, r.Healthy("primary"))
}

func TestRegistry_BackoffProfile(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), DefaultProviders()...)

	p := r.BackoffProfile("razorpay_mock")
	assert.Equal(t, 1.6, p.Multiplier)
	assert.Equal(t, 0.10, p.Jitter)

	fallback := r.BackoffProfile("unknown_provider")
	assert.Equal(t, DefaultBackoffProfile, fallback)

	r.SetBackoffProfile("custom", BackoffProfile{Multiplier: 3.0, Jitter: 0.5})
	assert.Equal(t, 3.0, r.BackoffProfile("custom").Multiplier)
}

func TestRegistry_Providers(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), DefaultProviders()...)
	fleet := r.Providers()
	require.Len(t, fleet, 3)
	assert.Equal(t, "razorpay_mock", fleet[0].Name())
	assert.Equal(t, "cashfree_mock", fleet[1].Name())
	assert.Equal(t, "mock_provider", fleet[2].Name())
}

func TestRegistry_IndependentBreakers(t *testing.T) {
	cfg := RegistryConfig{FailureThreshold: 2, Cooldown: time.Minute}
	r := NewRegistry(cfg,
		NewMockProvider("primary"),
		NewMockProvider("secondary"),
	)

	r.ReportFailure("primary")
	r.ReportFailure("primary")

	assert.False(t, r.Healthy("primary"))
	assert.True(t, r.Healthy("secondary"))
}

func TestRegistry_SelectIgnoresTransactionContents(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), NewMockProvider("primary"))
	ctx := context.Background()

	tx := testTransaction()
	p := r.Select(tx)
	require.NotNil(t, p)

	res, err := p.Charge(ctx, tx)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

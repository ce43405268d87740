package providers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockProvider(t *testing.T) {
	p := NewMockProvider("test")
	assert.Equal(t, "test", p.Name())
}

func TestMockProvider_Charge_AlwaysSucceeds(t *testing.T) {
	p := NewMockProvider("test", WithSuccessRate(1.0), WithRefPrefix("TEST"))
	tx, _ := transaction.New("client-1", 5000, "INR", "", nil)

	for i := 0; i < 10; i++ {
		res, err := p.Charge(context.Background(), tx)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, strings.HasPrefix(res.ProviderRef, "TEST-"))
	}
}

func TestMockProvider_Charge_AlwaysFails(t *testing.T) {
	p := NewMockProvider("razorpay_mock", WithSuccessRate(0.0))
	tx, _ := transaction.New("client-1", 5000, "INR", "", nil)

	for i := 0; i < 10; i++ {
		res, err := p.Charge(context.Background(), tx)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "razorpay-mock-failure", res.ErrorMessage)
	}
}

func TestMockProvider_Charge_ContextCancelled(t *testing.T) {
	p := NewMockProvider("test", WithLatencyRange(time.Second, 2*time.Second))
	tx, _ := transaction.New("client-1", 5000, "INR", "", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Charge(ctx, tx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaultProviders(t *testing.T) {
	fleet := DefaultProviders()
	require.Len(t, fleet, 3)
	assert.Equal(t, "razorpay_mock", fleet[0].Name())
	assert.Equal(t, "cashfree_mock", fleet[1].Name())
	assert.Equal(t, "mock_provider", fleet[2].Name())
}

package providers

import (
	"context"

	"github.com/arvindkp/settlements/internal/domain/transaction"
)

// ChargeResult is the outcome of a single charge attempt. Success=false is a
// business decline and drives the retry state machine; transport-level
// problems surface as an error from Charge instead.
type ChargeResult struct {
	Success      bool
	ProviderRef  string
	ErrorMessage string
}

// Provider is an interchangeable external charge capability.
type Provider interface {
	// Name returns the provider name used for routing, health tracking and
	// backoff profiles.
	Name() string
	// Charge attempts to settle the transaction with the downstream provider.
	Charge(ctx context.Context, t *transaction.Transaction) (*ChargeResult, error)
}

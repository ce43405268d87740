package testutil

import (
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/arvindkp/settlements/internal/observability"
	"github.com/arvindkp/settlements/internal/providers"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func NewTestTransaction(clientID string, amountCents int64) *transaction.Transaction {
	now := time.Now().UTC()
	return &transaction.Transaction{
		ID:          uuid.New(),
		ClientID:    clientID,
		AmountCents: amountCents,
		Currency:    transaction.DefaultCurrency,
		Status:      transaction.StatusPending,
		Attempts:    0,
		Metadata:    make(map[string]any),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewTestTransactionWithKey(clientID string, amountCents int64, idempotencyKey string) *transaction.Transaction {
	t := NewTestTransaction(clientID, amountCents)
	t.IdempotencyKey = &idempotencyKey
	return t
}

func NewTestJob(t *transaction.Transaction) *transaction.SettlementJob {
	return transaction.NewSettlementJob(t)
}

// NewTestMetrics registers metrics against a throwaway registry so parallel
// tests never collide on the default registerer.
func NewTestMetrics() *observability.Metrics {
	return observability.NewMetrics("test", prometheus.NewRegistry())
}

// SuccessResult builds a successful charge result.
func SuccessResult(ref string) *providers.ChargeResult {
	return &providers.ChargeResult{Success: true, ProviderRef: ref}
}

// FailureResult builds a declined charge result.
func FailureResult(msg string) *providers.ChargeResult {
	return &providers.ChargeResult{Success: false, ErrorMessage: msg}
}

package controller

import (
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, string for IDs,
// validation tags). Controllers convert these to application-layer requests
// before calling business logic.

// CreateTransactionRequest holds the input for submitting a payment for
// settlement. Amount is in major currency units and converted to minor units
// internally.
type CreateTransactionRequest struct {
	ClientID string         `json:"clientId" validate:"required"`
	Amount   *float64       `json:"amount" validate:"required,gt=0"`
	Currency string         `json:"currency" validate:"omitempty,len=3"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// --- Response DTOs ---

// CreateTransactionResponse is the intake acknowledgement. Settlement is
// asynchronous, so the status here is almost always PENDING.
type CreateTransactionResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID          string         `json:"id"`
	ClientID    string         `json:"clientId"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	Status      string         `json:"status"`
	Attempts    int            `json:"attempts"`
	ProviderRef *string        `json:"providerRef,omitempty"`
	LastError   *string        `json:"lastError,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromTransaction converts a domain transaction to an API response.
func FromTransaction(t *transaction.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:          t.ID.String(),
		ClientID:    t.ClientID,
		Amount:      centsToFloat(t.AmountCents),
		Currency:    t.Currency,
		Status:      string(t.Status),
		Attempts:    t.Attempts,
		ProviderRef: t.ProviderRef,
		LastError:   t.LastError,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// floatToCents converts a major-unit amount to minor units.
func floatToCents(f float64) int64 {
	return int64(f*100 + 0.5)
}

// centsToFloat converts minor units to a major-unit amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}

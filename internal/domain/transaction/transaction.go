package transaction

import (
	"time"

	"github.com/arvindkp/settlements/internal/domain/errors"
	"github.com/google/uuid"
)

// DefaultCurrency is applied when a request does not specify one.
const DefaultCurrency = "INR"

// Status represents the transaction status in the settlement state machine.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Transaction is the authoritative settlement record. The worker is the only
// writer of Status, Attempts, ProviderRef and LastError after intake.
type Transaction struct {
	ID             uuid.UUID
	ClientID       string
	AmountCents    int64
	Currency       string
	Status         Status
	Attempts       int
	ProviderRef    *string
	LastError      *string
	IdempotencyKey *string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New creates a pending transaction for the given merchant request.
func New(clientID string, amountCents int64, currency string, idempotencyKey string, metadata map[string]any) (*Transaction, error) {
	if clientID == "" {
		return nil, errors.NewValidationError("clientId", "cannot be empty")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}

	t := &Transaction{
		ID:          uuid.New(),
		ClientID:    clientID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      StatusPending,
		Attempts:    0,
		Metadata:    metadata,
	}
	if idempotencyKey != "" {
		t.IdempotencyKey = &idempotencyKey
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

// CanTransitionTo checks whether the status change is allowed.
// PENDING is the sole initial state; SUCCESS and FAILED are terminal.
func (t *Transaction) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {StatusSuccess, StatusFailed},
		StatusSuccess: {},
		StatusFailed:  {},
	}

	for _, allowed := range transitions[t.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the transaction to a new status.
func (t *Transaction) TransitionTo(newStatus Status) error {
	if !t.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	t.Status = newStatus
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSucceeded records a successful charge. Attempts never decreases.
func (t *Transaction) MarkSucceeded(attempts int, providerRef string) error {
	if err := t.TransitionTo(StatusSuccess); err != nil {
		return err
	}
	if attempts > t.Attempts {
		t.Attempts = attempts
	}
	t.ProviderRef = &providerRef
	return nil
}

// RecordFailure records a failed charge attempt without leaving PENDING.
func (t *Transaction) RecordFailure(attempts int, lastError string) error {
	if t.Status != StatusPending {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot record attempt on "+string(t.Status)+" transaction",
			errors.ErrInvalidStateTransition,
		)
	}
	if attempts > t.Attempts {
		t.Attempts = attempts
	}
	t.LastError = &lastError
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed moves the transaction to its terminal FAILED state.
func (t *Transaction) MarkFailed(attempts int, lastError string) error {
	if err := t.TransitionTo(StatusFailed); err != nil {
		return err
	}
	if attempts > t.Attempts {
		t.Attempts = attempts
	}
	t.LastError = &lastError
	return nil
}

// IsTerminal reports whether the transaction reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}

// IdempotencyRecord maps a caller-supplied idempotency key to a transaction.
// Its status mirrors the transaction's status best-effort; the transaction
// record remains the source of truth.
type IdempotencyRecord struct {
	Key           string
	TransactionID uuid.UUID
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewIdempotencyRecord creates the mirror record for a fresh transaction.
func NewIdempotencyRecord(key string, t *Transaction) *IdempotencyRecord {
	now := time.Now().UTC()
	return &IdempotencyRecord{
		Key:           key,
		TransactionID: t.ID,
		Status:        t.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

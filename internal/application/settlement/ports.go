package settlement

import (
	"context"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/google/uuid"
)

// TransactionRepository is the durable store for settlement transactions.
// Getters return (nil, nil) when the record does not exist; update methods
// return the stored row after the write so callers see the authoritative
// state even when a guarded transition did not apply.
type TransactionRepository interface {
	Create(ctx context.Context, t *transaction.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, attempts int, providerRef string) (*transaction.Transaction, error)
	RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error)
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error)
}

// IdempotencyRepository is the secondary index keyed by caller-supplied
// idempotency keys.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*transaction.IdempotencyRecord, error)
	Put(ctx context.Context, rec *transaction.IdempotencyRecord) error
	UpdateStatus(ctx context.Context, key string, status transaction.Status) error
}

// EventPublisher fans terminal settlement events out to interested consumers.
// Publishing is best-effort; the worker logs and continues on failure.
type EventPublisher interface {
	PublishSettled(ctx context.Context, t *transaction.Transaction) error
	PublishDeadLetter(ctx context.Context, d *transaction.DeadLetterJob) error
}

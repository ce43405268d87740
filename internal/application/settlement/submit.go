package settlement

import (
	"context"
	"fmt"

	domainErrors "github.com/arvindkp/settlements/internal/domain/errors"
	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/arvindkp/settlements/internal/queue"
	"github.com/arvindkp/settlements/pkg/retry"
	"github.com/rs/zerolog"
)

// SubmitRequest holds the intake payload. AmountCents is a pointer so a
// missing amount is distinguishable from zero, which is the caller's concern.
type SubmitRequest struct {
	ClientID       string
	AmountCents    *int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]any
}

// SubmitResponse is the intake result. Replayed is true when the response was
// answered from the idempotency index instead of creating a new transaction.
type SubmitResponse struct {
	TransactionID string
	Status        transaction.Status
	Replayed      bool
}

// SubmitUseCase validates a payment request, performs the idempotency lookup,
// persists the transaction and its idempotency mirror, and enqueues the
// settlement job. Steps are deliberately not transactional across records; a
// crash mid-way leaves a bounded, accepted inconsistency.
type SubmitUseCase struct {
	txRepo   TransactionRepository
	idemRepo IdempotencyRepository
	jobs     queue.Queue
	logger   zerolog.Logger
}

func NewSubmitUseCase(
	txRepo TransactionRepository,
	idemRepo IdempotencyRepository,
	jobs queue.Queue,
	logger zerolog.Logger,
) *SubmitUseCase {
	return &SubmitUseCase{
		txRepo:   txRepo,
		idemRepo: idemRepo,
		jobs:     jobs,
		logger:   logger,
	}
}

// Execute performs intake. Repeated calls with the same idempotency key
// return the original mapping without creating a transaction or job.
func (uc *SubmitUseCase) Execute(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.ClientID == "" {
		return nil, domainErrors.NewValidationError("clientId", "is required")
	}
	if req.AmountCents == nil {
		return nil, domainErrors.NewValidationError("amount", "is required")
	}

	// 1. Idempotency fast path.
	if req.IdempotencyKey != "" {
		existing, err := uc.idemRepo.Get(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			uc.logger.Info().
				Str("idempotency_key", req.IdempotencyKey).
				Str("transaction_id", existing.TransactionID.String()).
				Msg("Idempotency hit, returning existing transaction")
			return &SubmitResponse{
				TransactionID: existing.TransactionID.String(),
				Status:        existing.Status,
				Replayed:      true,
			}, nil
		}
	}

	// 2. Create the transaction record.
	t, err := transaction.New(req.ClientID, *req.AmountCents, req.Currency, req.IdempotencyKey, req.Metadata)
	if err != nil {
		return nil, err
	}
	if err := uc.txRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	// 3. Mirror the idempotency mapping.
	if req.IdempotencyKey != "" {
		rec := transaction.NewIdempotencyRecord(req.IdempotencyKey, t)
		if err := uc.idemRepo.Put(ctx, rec); err != nil {
			return nil, fmt.Errorf("store idempotency mapping: %w", err)
		}
	}

	// 4. Enqueue the settlement job.
	job := transaction.NewSettlementJob(t)
	body, err := job.Encode()
	if err != nil {
		return nil, err
	}
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return uc.jobs.Send(ctx, body, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue settlement job: %w", err)
	}

	uc.logger.Info().
		Str("transaction_id", t.ID.String()).
		Str("client_id", t.ClientID).
		Int64("amount", t.AmountCents).
		Msg("Transaction accepted for settlement")

	return &SubmitResponse{
		TransactionID: t.ID.String(),
		Status:        t.Status,
	}, nil
}

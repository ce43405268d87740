package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, client_id, amount, currency, status, attempts,
	provider_ref, last_error, idempotency_key, metadata, created_at, updated_at`

// TransactionRepository persists settlement transactions. Terminal-state
// updates are status-guarded so re-applying a terminal update under duplicate
// delivery is harmless.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO transactions
		 (id, client_id, amount, currency, status, attempts,
		  provider_ref, last_error, idempotency_key, metadata, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.ClientID, t.AmountCents, t.Currency, string(t.Status), t.Attempts,
		t.ProviderRef, t.LastError, t.IdempotencyKey, metadata, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction. Returns (nil, nil) when absent so callers
// can distinguish a stale job from an infrastructure failure.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	t, err := r.scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// MarkSucceeded transitions a pending transaction to SUCCESS and returns the
// stored row. If the row already left PENDING the current row is returned
// unchanged.
func (r *TransactionRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, attempts int, providerRef string) (*transaction.Transaction, error) {
	t, err := r.scanTransaction(r.pool.QueryRow(ctx,
		`UPDATE transactions
		 SET status = 'SUCCESS', attempts = GREATEST(attempts, $2),
		     provider_ref = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING `+transactionColumns, id, attempts, providerRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.GetByID(ctx, id)
		}
		return nil, fmt.Errorf("mark transaction succeeded: %w", err)
	}
	return t, nil
}

// RecordFailure stores the attempt count and last error of a failed attempt
// without leaving PENDING.
func (r *TransactionRepository) RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error) {
	t, err := r.scanTransaction(r.pool.QueryRow(ctx,
		`UPDATE transactions
		 SET attempts = GREATEST(attempts, $2), last_error = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING `+transactionColumns, id, attempts, lastError))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.GetByID(ctx, id)
		}
		return nil, fmt.Errorf("record transaction failure: %w", err)
	}
	return t, nil
}

// MarkFailed transitions a pending transaction to its terminal FAILED state.
func (r *TransactionRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error) {
	t, err := r.scanTransaction(r.pool.QueryRow(ctx,
		`UPDATE transactions
		 SET status = 'FAILED', attempts = GREATEST(attempts, $2),
		     last_error = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING `+transactionColumns, id, attempts, lastError))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.GetByID(ctx, id)
		}
		return nil, fmt.Errorf("mark transaction failed: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) scanTransaction(row scanner) (*transaction.Transaction, error) {
	var (
		t        transaction.Transaction
		status   string
		metadata []byte
	)
	err := row.Scan(
		&t.ID, &t.ClientID, &t.AmountCents, &t.Currency, &status, &t.Attempts,
		&t.ProviderRef, &t.LastError, &t.IdempotencyKey, &metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = transaction.Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &t, nil
}

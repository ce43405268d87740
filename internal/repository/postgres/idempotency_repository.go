package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository persists the idempotency-key index. The index is a
// best-effort mirror of the transaction record; divergence is tolerated.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Get returns the record for a key, or (nil, nil) when absent.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*transaction.IdempotencyRecord, error) {
	rec := &transaction.IdempotencyRecord{}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT key, transaction_id, status, created_at, updated_at
		 FROM idempotency_keys WHERE key = $1`, key,
	).Scan(&rec.Key, &rec.TransactionID, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	rec.Status = transaction.Status(status)
	return rec, nil
}

// Put stores the mapping for a fresh transaction. A concurrent insert of the
// same key keeps the first mapping.
func (r *IdempotencyRepository) Put(ctx context.Context, rec *transaction.IdempotencyRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, transaction_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO NOTHING`,
		rec.Key, rec.TransactionID, string(rec.Status), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put idempotency key: %w", err)
	}
	return nil
}

// UpdateStatus mirrors a transaction status change onto the index.
func (r *IdempotencyRepository) UpdateStatus(ctx context.Context, key string, status transaction.Status) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE idempotency_keys SET status = $2, updated_at = NOW() WHERE key = $1`,
		key, string(status),
	)
	if err != nil {
		return fmt.Errorf("update idempotency status: %w", err)
	}
	return nil
}

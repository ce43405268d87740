package settlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arvindkp/settlements/internal/application/settlement"
	domainErrors "github.com/arvindkp/settlements/internal/domain/errors"
	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/arvindkp/settlements/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestSubmitUseCase_Execute(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	idemRepo := testutil.NewMockIdempotencyRepository()
	jobs := testutil.NewMemoryQueue()

	uc := settlement.NewSubmitUseCase(txRepo, idemRepo, jobs, zerolog.Nop())
	resp, err := uc.Execute(context.Background(), settlement.SubmitRequest{
		ClientID:       "client-1",
		AmountCents:    int64Ptr(5000),
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, resp.Status)

	id, err := uuid.Parse(resp.TransactionID)
	require.NoError(t, err)

	stored := txRepo.GetTransactionByID(id)
	require.NotNil(t, stored)
	assert.Equal(t, "client-1", stored.ClientID)
	assert.Equal(t, int64(5000), stored.AmountCents)
	assert.Equal(t, transaction.DefaultCurrency, stored.Currency)

	rec := idemRepo.GetRecord("key-1")
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.TransactionID)

	require.Equal(t, 1, jobs.Len())
	job, err := transaction.DecodeSettlementJob(jobs.Bodies()[0])
	require.NoError(t, err)
	assert.Equal(t, resp.TransactionID, job.TransactionID)
	assert.Equal(t, 0, job.Attempts)
}

func TestSubmitUseCase_Execute_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  settlement.SubmitRequest
	}{
		{"missing client id", settlement.SubmitRequest{AmountCents: int64Ptr(5000)}},
		{"missing amount", settlement.SubmitRequest{ClientID: "client-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := settlement.NewSubmitUseCase(
				testutil.NewMockTransactionRepository(),
				testutil.NewMockIdempotencyRepository(),
				testutil.NewMemoryQueue(),
				zerolog.Nop(),
			)
			_, err := uc.Execute(context.Background(), tt.req)
			require.Error(t, err)

			var ve *domainErrors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestSubmitUseCase_Execute_IdempotencyHit(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	idemRepo := testutil.NewMockIdempotencyRepository()
	jobs := testutil.NewMemoryQueue()

	uc := settlement.NewSubmitUseCase(txRepo, idemRepo, jobs, zerolog.Nop())
	ctx := context.Background()

	first, err := uc.Execute(ctx, settlement.SubmitRequest{
		ClientID:       "client-1",
		AmountCents:    int64Ptr(5000),
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	// Same key, even with a different amount, returns the original mapping.
	second, err := uc.Execute(ctx, settlement.SubmitRequest{
		ClientID:       "client-1",
		AmountCents:    int64Ptr(9999),
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1, jobs.Len())
}

func TestSubmitUseCase_Execute_IdempotencyHitReflectsTerminalStatus(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	idemRepo := testutil.NewMockIdempotencyRepository()
	jobs := testutil.NewMemoryQueue()
	ctx := context.Background()

	tx := testutil.NewTestTransactionWithKey("client-1", 5000, "key-1")
	txRepo.AddTransaction(tx)
	require.NoError(t, idemRepo.Put(ctx, transaction.NewIdempotencyRecord("key-1", tx)))
	require.NoError(t, idemRepo.UpdateStatus(ctx, "key-1", transaction.StatusSuccess))

	uc := settlement.NewSubmitUseCase(txRepo, idemRepo, jobs, zerolog.Nop())
	resp, err := uc.Execute(ctx, settlement.SubmitRequest{
		ClientID:       "client-1",
		AmountCents:    int64Ptr(5000),
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, tx.ID.String(), resp.TransactionID)
	assert.Equal(t, transaction.StatusSuccess, resp.Status)
	assert.Equal(t, 0, jobs.Len())
}

func TestSubmitUseCase_Execute_NoKeySkipsIdempotency(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	idemRepo := testutil.NewMockIdempotencyRepository()
	jobs := testutil.NewMemoryQueue()

	uc := settlement.NewSubmitUseCase(txRepo, idemRepo, jobs, zerolog.Nop())
	ctx := context.Background()

	first, err := uc.Execute(ctx, settlement.SubmitRequest{ClientID: "client-1", AmountCents: int64Ptr(100)})
	require.NoError(t, err)
	second, err := uc.Execute(ctx, settlement.SubmitRequest{ClientID: "client-1", AmountCents: int64Ptr(100)})
	require.NoError(t, err)

	assert.NotEqual(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, 2, jobs.Len())
}

func TestSubmitUseCase_Execute_CreateError(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	txRepo.CreateFunc = func(ctx context.Context, tr *transaction.Transaction) error {
		return errors.New("connection reset")
	}
	jobs := testutil.NewMemoryQueue()

	uc := settlement.NewSubmitUseCase(txRepo, testutil.NewMockIdempotencyRepository(), jobs, zerolog.Nop())
	_, err := uc.Execute(context.Background(), settlement.SubmitRequest{
		ClientID:    "client-1",
		AmountCents: int64Ptr(5000),
	})
	require.Error(t, err)
	assert.Equal(t, 0, jobs.Len())
}

func TestSubmitUseCase_Execute_EnqueueError(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	jobs := testutil.NewMemoryQueue()
	jobs.SendFunc = func(ctx context.Context, body string, delay time.Duration) error {
		return errors.New("queue down")
	}

	uc := settlement.NewSubmitUseCase(txRepo, testutil.NewMockIdempotencyRepository(), jobs, zerolog.Nop())
	_, err := uc.Execute(context.Background(), settlement.SubmitRequest{
		ClientID:    "client-1",
		AmountCents: int64Ptr(5000),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue settlement job")
}

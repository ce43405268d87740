package settlement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arvindkp/settlements/internal/application/settlement"
	domainErrors "github.com/arvindkp/settlements/internal/domain/errors"
	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/arvindkp/settlements/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTransactionUseCase_Execute(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	tx := testutil.NewTestTransaction("client-1", 5000)
	txRepo.AddTransaction(tx)

	uc := settlement.NewGetTransactionUseCase(txRepo)
	got, err := uc.Execute(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, "client-1", got.ClientID)
}

func TestGetTransactionUseCase_Execute_NotFound(t *testing.T) {
	uc := settlement.NewGetTransactionUseCase(testutil.NewMockTransactionRepository())
	_, err := uc.Execute(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrTransactionNotFound))
}

func TestGetTransactionUseCase_Execute_RepositoryError(t *testing.T) {
	txRepo := testutil.NewMockTransactionRepository()
	txRepo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
		return nil, errors.New("connection reset")
	}

	uc := settlement.NewGetTransactionUseCase(txRepo)
	_, err := uc.Execute(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domainErrors.ErrTransactionNotFound))
}

package settlement

import (
	"context"
	"fmt"

	domainErrors "github.com/arvindkp/settlements/internal/domain/errors"
	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/google/uuid"
)

// GetTransactionUseCase reads a single transaction by id.
type GetTransactionUseCase struct {
	txRepo TransactionRepository
}

func NewGetTransactionUseCase(txRepo TransactionRepository) *GetTransactionUseCase {
	return &GetTransactionUseCase{txRepo: txRepo}
}

func (uc *GetTransactionUseCase) Execute(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	t, err := uc.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if t == nil {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return t, nil
}

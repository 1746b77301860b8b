package usecase

import (
	"context"

	"github.com/iho/centralledger/internal/domain"
)

// TransferUseCase serves read access to transfers and their state history.
type TransferUseCase struct {
	transferRepo    TransferRepository
	stateChangeRepo StateChangeRepository
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(transferRepo TransferRepository, stateChangeRepo StateChangeRepository) *TransferUseCase {
	return &TransferUseCase{
		transferRepo:    transferRepo,
		stateChangeRepo: stateChangeRepo,
	}
}

// GetTransfer retrieves a transfer by ID.
func (uc *TransferUseCase) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	if err := domain.ValidateTransferID(id); err != nil {
		return nil, err
	}
	return uc.transferRepo.GetByID(ctx, id)
}

// GetStateHistory returns every state the transfer passed through, oldest first.
func (uc *TransferUseCase) GetStateHistory(ctx context.Context, id string) ([]*domain.StateChange, error) {
	if _, err := uc.GetTransfer(ctx, id); err != nil {
		return nil, err
	}
	return uc.stateChangeRepo.ListByTransfer(ctx, id)
}

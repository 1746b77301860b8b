package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/centralledger/internal/domain"
)

// PositionUseCase handles position records outside the event flow.
type PositionUseCase struct {
	txManager     TransactionManager
	positionRepo  PositionRepository
	changeLogRepo ChangeLogRepository
	idGen         IDGenerator
}

// NewPositionUseCase creates a new PositionUseCase.
func NewPositionUseCase(
	txManager TransactionManager,
	positionRepo PositionRepository,
	changeLogRepo ChangeLogRepository,
	idGen IDGenerator,
) *PositionUseCase {
	return &PositionUseCase{
		txManager:     txManager,
		positionRepo:  positionRepo,
		changeLogRepo: changeLogRepo,
		idGen:         idGen,
	}
}

// OpenPositionInput represents input for opening a position.
type OpenPositionInput struct {
	AccountID      string
	Currency       string
	OpeningBalance decimal.Decimal
}

// OpenPosition creates a position together with its opening change-log entry,
// so the change log reproduces the balance from the first row.
func (uc *PositionUseCase) OpenPosition(ctx context.Context, input OpenPositionInput) (*domain.Position, error) {
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))

	if err := domain.ValidateAccountID(input.AccountID); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(input.Currency); err != nil {
		return nil, err
	}
	if input.OpeningBalance.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	key := domain.PositionKey{AccountID: input.AccountID, Currency: input.Currency}

	position := &domain.Position{
		AccountID:      input.AccountID,
		Currency:       input.Currency,
		Balance:        input.OpeningBalance,
		Reserved:       decimal.Zero,
		LastTransferID: domain.OpeningTransferID(key),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.positionRepo.Create(ctx, tx, position); err != nil {
		return nil, err
	}

	entry := &domain.ChangeLogEntry{
		ID:              uc.idGen.Generate(),
		TransferID:      position.LastTransferID,
		AccountID:       position.AccountID,
		Currency:        position.Currency,
		Delta:           input.OpeningBalance,
		PreviousBalance: decimal.Zero,
		ResultBalance:   input.OpeningBalance,
		Offset:          -1,
		PositionVersion: position.Version,
		CreatedAt:       now,
	}
	if err := uc.changeLogRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return position, nil
}

// GetPosition retrieves a position by account and currency.
func (uc *PositionUseCase) GetPosition(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	key.Currency = strings.ToUpper(key.Currency)
	return uc.positionRepo.GetByKey(ctx, key)
}

// ListChanges returns the change log of a position, oldest first.
func (uc *PositionUseCase) ListChanges(ctx context.Context, key domain.PositionKey) ([]*domain.ChangeLogEntry, error) {
	key.Currency = strings.ToUpper(key.Currency)
	return uc.changeLogRepo.ListByPosition(ctx, key)
}

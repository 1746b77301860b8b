package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/centralledger/internal/domain"
)

// ReconciliationUseCase checks positions against their ledger history
type ReconciliationUseCase struct {
	positionRepo    PositionRepository
	changeLogRepo   ChangeLogRepository
	reservationRepo ReservationRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	positionRepo PositionRepository,
	changeLogRepo ChangeLogRepository,
	reservationRepo ReservationRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		positionRepo:    positionRepo,
		changeLogRepo:   changeLogRepo,
		reservationRepo: reservationRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	LastChecked        time.Time
	AccountID          string
	Currency           string
	RecordedBalance    decimal.Decimal
	CalculatedBalance  decimal.Decimal
	RecordedReserved   decimal.Decimal
	CalculatedReserved decimal.Decimal
	Difference         decimal.Decimal
	Entries            int
	IsReconciled       bool
}

// Reconcile replays the change log and active reservations of a position from
// empty and compares the result with the stored record.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, key domain.PositionKey) (*ReconciliationResult, error) {
	key.Currency = strings.ToUpper(key.Currency)

	position, err := uc.positionRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	entries, err := uc.changeLogRepo.ListByPosition(ctx, key)
	if err != nil {
		return nil, err
	}

	reservations, err := uc.reservationRepo.ListByPosition(ctx, key)
	if err != nil {
		return nil, err
	}

	balance, reserved := domain.Replay(entries, reservations)
	diff := position.Balance.Sub(balance)

	return &ReconciliationResult{
		AccountID:          key.AccountID,
		Currency:           key.Currency,
		RecordedBalance:    position.Balance,
		CalculatedBalance:  balance,
		RecordedReserved:   position.Reserved,
		CalculatedReserved: reserved,
		Difference:         diff,
		Entries:            len(entries),
		IsReconciled:       diff.IsZero() && position.Reserved.Equal(reserved),
		LastChecked:        time.Now().UTC(),
	}, nil
}

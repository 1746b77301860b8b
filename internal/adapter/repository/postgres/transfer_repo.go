package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/postgres/generated"
	"github.com/iho/centralledger/internal/usecase"
)

// TransferRepository implements usecase.TransferRepository.
type TransferRepository struct {
	queries *generated.Queries
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(db generated.DBTX) *TransferRepository {
	return &TransferRepository{queries: generated.New(db)}
}

// Create inserts a transfer.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	err := txQueries(tx).CreateTransfer(ctx, generated.CreateTransferParams{
		ID:        transfer.ID,
		PayerID:   transfer.PayerID,
		PayeeID:   transfer.PayeeID,
		Currency:  transfer.Currency,
		Amount:    decimalToNumeric(transfer.Amount),
		State:     string(transfer.State),
		Reason:    string(transfer.Reason),
		ExpiresAt: timeToPgTimestamptz(transfer.ExpiresAt),
		CreatedAt: timeToPgTimestamptz(transfer.CreatedAt),
		UpdatedAt: timeToPgTimestamptz(transfer.UpdatedAt),
	})

	return mapWriteError(err)
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	row, err := r.queries.GetTransfer(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransferNotFound
		}

		return nil, err
	}

	return rowToTransfer(row), nil
}

// GetByIDForUpdate retrieves a transfer by ID with a FOR UPDATE lock.
func (r *TransferRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transfer, error) {
	row, err := txQueries(tx).GetTransferForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransferNotFound
		}

		return nil, err
	}

	return rowToTransfer(row), nil
}

// UpdateState writes the state, reason and update time of a transfer.
func (r *TransferRepository) UpdateState(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	n, err := txQueries(tx).UpdateTransferState(ctx, generated.UpdateTransferStateParams{
		ID:        transfer.ID,
		State:     string(transfer.State),
		Reason:    string(transfer.Reason),
		UpdatedAt: timeToPgTimestamptz(transfer.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTransferNotFound
	}

	return nil
}

// ListExpiredReserved returns RESERVED transfers whose expiry is at or before now, oldest first.
func (r *TransferRepository) ListExpiredReserved(ctx context.Context, now time.Time, limit int) ([]*domain.Transfer, error) {
	rows, err := r.queries.ListExpiredReservedTransfers(ctx, generated.ListExpiredReservedTransfersParams{
		Now:   timeToPgTimestamptz(now),
		Limit: int32(limit),
	})
	if err != nil {
		return nil, err
	}

	transfers := make([]*domain.Transfer, 0, len(rows))
	for _, row := range rows {
		transfers = append(transfers, rowToTransfer(row))
	}

	return transfers, nil
}

func rowToTransfer(row generated.Transfer) *domain.Transfer {
	return &domain.Transfer{
		ID:        row.ID,
		PayerID:   row.PayerID,
		PayeeID:   row.PayeeID,
		Currency:  row.Currency,
		Amount:    numericToDecimal(row.Amount),
		State:     domain.TransferState(row.State),
		Reason:    domain.Reason(row.Reason),
		ExpiresAt: row.ExpiresAt.Time,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

// StateChangeRepository implements usecase.StateChangeRepository.
type StateChangeRepository struct {
	queries *generated.Queries
}

// NewStateChangeRepository creates a new StateChangeRepository.
func NewStateChangeRepository(db generated.DBTX) *StateChangeRepository {
	return &StateChangeRepository{queries: generated.New(db)}
}

// Create records a state the transfer entered.
func (r *StateChangeRepository) Create(ctx context.Context, tx usecase.Transaction, change *domain.StateChange) error {
	return txQueries(tx).CreateStateChange(ctx, generated.CreateStateChangeParams{
		ID:         change.ID,
		TransferID: change.TransferID,
		State:      string(change.State),
		Reason:     string(change.Reason),
		CreatedAt:  timeToPgTimestamptz(change.CreatedAt),
	})
}

// ListByTransfer returns the state history of a transfer, oldest first.
func (r *StateChangeRepository) ListByTransfer(ctx context.Context, transferID string) ([]*domain.StateChange, error) {
	rows, err := r.queries.ListStateChanges(ctx, transferID)
	if err != nil {
		return nil, err
	}

	changes := make([]*domain.StateChange, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, &domain.StateChange{
			ID:         row.ID,
			TransferID: row.TransferID,
			State:      domain.TransferState(row.State),
			Reason:     domain.Reason(row.Reason),
			CreatedAt:  row.CreatedAt.Time,
		})
	}

	return changes, nil
}

package postgres

import (
	"context"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/postgres/generated"
	"github.com/iho/centralledger/internal/usecase"
)

// ChangeLogRepository implements usecase.ChangeLogRepository.
type ChangeLogRepository struct {
	queries *generated.Queries
}

// NewChangeLogRepository creates a new ChangeLogRepository.
func NewChangeLogRepository(db generated.DBTX) *ChangeLogRepository {
	return &ChangeLogRepository{queries: generated.New(db)}
}

// Create appends an entry. The (transfer_id, account_id) constraint rejects
// a second entry for the same transfer with domain.ErrDuplicate.
func (r *ChangeLogRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.ChangeLogEntry) error {
	err := txQueries(tx).CreatePositionChange(ctx, generated.CreatePositionChangeParams{
		ID:              entry.ID,
		TransferID:      entry.TransferID,
		AccountID:       entry.AccountID,
		Currency:        entry.Currency,
		Delta:           decimalToNumeric(entry.Delta),
		PreviousBalance: decimalToNumeric(entry.PreviousBalance),
		ResultBalance:   decimalToNumeric(entry.ResultBalance),
		EventOffset:     entry.Offset,
		PositionVersion: entry.PositionVersion,
		CreatedAt:       timeToPgTimestamptz(entry.CreatedAt),
	})

	return mapWriteError(err)
}

// Exists reports whether the transfer already changed the account's balance.
func (r *ChangeLogRepository) Exists(ctx context.Context, tx usecase.Transaction, transferID, accountID string) (bool, error) {
	return txQueries(tx).PositionChangeExists(ctx, generated.PositionChangeExistsParams{
		TransferID: transferID,
		AccountID:  accountID,
	})
}

// ListByPosition returns the change log of a position in application order.
func (r *ChangeLogRepository) ListByPosition(ctx context.Context, key domain.PositionKey) ([]*domain.ChangeLogEntry, error) {
	rows, err := r.queries.ListPositionChanges(ctx, generated.ListPositionChangesParams{
		AccountID: key.AccountID,
		Currency:  key.Currency,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.ChangeLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.ChangeLogEntry{
			ID:              row.ID,
			TransferID:      row.TransferID,
			AccountID:       row.AccountID,
			Currency:        row.Currency,
			Delta:           numericToDecimal(row.Delta),
			PreviousBalance: numericToDecimal(row.PreviousBalance),
			ResultBalance:   numericToDecimal(row.ResultBalance),
			Offset:          row.EventOffset,
			PositionVersion: row.PositionVersion,
			CreatedAt:       row.CreatedAt.Time,
		})
	}

	return entries, nil
}

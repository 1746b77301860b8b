package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/postgres/generated"
	"github.com/iho/centralledger/internal/usecase"
)

// PositionRepository implements usecase.PositionRepository.
type PositionRepository struct {
	queries *generated.Queries
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db generated.DBTX) *PositionRepository {
	return &PositionRepository{queries: generated.New(db)}
}

// Create inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	err := txQueries(tx).CreatePosition(ctx, generated.CreatePositionParams{
		AccountID:      position.AccountID,
		Currency:       position.Currency,
		Balance:        decimalToNumeric(position.Balance),
		Reserved:       decimalToNumeric(position.Reserved),
		LastTransferID: position.LastTransferID,
		LastOffset:     position.LastOffset,
		Version:        position.Version,
		CreatedAt:      timeToPgTimestamptz(position.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(position.UpdatedAt),
	})

	return mapWriteError(err)
}

// GetByKey retrieves a position without locking it.
func (r *PositionRepository) GetByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	row, err := r.queries.GetPosition(ctx, generated.GetPositionParams{
		AccountID: key.AccountID,
		Currency:  key.Currency,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}

		return nil, err
	}

	return rowToPosition(row), nil
}

// GetByKeysForUpdate locks the given positions with FOR UPDATE, ordered by key.
func (r *PositionRepository) GetByKeysForUpdate(ctx context.Context, tx usecase.Transaction, keys []domain.PositionKey) ([]*domain.Position, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	params := generated.GetPositionsForUpdateParams{
		AccountIds: make([]string, 0, len(keys)),
		Currencies: make([]string, 0, len(keys)),
	}
	for _, k := range keys {
		params.AccountIds = append(params.AccountIds, k.AccountID)
		params.Currencies = append(params.Currencies, k.Currency)
	}

	rows, err := txQueries(tx).GetPositionsForUpdate(ctx, params)
	if err != nil {
		return nil, err
	}

	positions := make([]*domain.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, rowToPosition(row))
	}

	return positions, nil
}

// Update writes the balances and sequence fields of a locked position.
func (r *PositionRepository) Update(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	n, err := txQueries(tx).UpdatePosition(ctx, generated.UpdatePositionParams{
		AccountID:      position.AccountID,
		Currency:       position.Currency,
		Balance:        decimalToNumeric(position.Balance),
		Reserved:       decimalToNumeric(position.Reserved),
		LastTransferID: position.LastTransferID,
		LastOffset:     position.LastOffset,
		Version:        position.Version,
		UpdatedAt:      timeToPgTimestamptz(position.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPositionNotFound
	}

	return nil
}

func rowToPosition(row generated.ParticipantPosition) *domain.Position {
	return &domain.Position{
		AccountID:      row.AccountID,
		Currency:       row.Currency,
		Balance:        numericToDecimal(row.Balance),
		Reserved:       numericToDecimal(row.Reserved),
		LastTransferID: row.LastTransferID,
		LastOffset:     row.LastOffset,
		Version:        row.Version,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

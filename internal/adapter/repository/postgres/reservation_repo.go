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

// ReservationRepository implements usecase.ReservationRepository.
type ReservationRepository struct {
	queries *generated.Queries
}

// NewReservationRepository creates a new ReservationRepository.
func NewReservationRepository(db generated.DBTX) *ReservationRepository {
	return &ReservationRepository{queries: generated.New(db)}
}

// Create inserts the reservation for a transfer.
func (r *ReservationRepository) Create(ctx context.Context, tx usecase.Transaction, reservation *domain.Reservation) error {
	err := txQueries(tx).CreateReservation(ctx, generated.CreateReservationParams{
		TransferID:  reservation.TransferID,
		AccountID:   reservation.AccountID,
		Currency:    reservation.Currency,
		Amount:      decimalToNumeric(reservation.Amount),
		Status:      string(reservation.Status),
		EventOffset: reservation.Offset,
		CreatedAt:   timeToPgTimestamptz(reservation.CreatedAt),
		UpdatedAt:   timeToPgTimestamptz(reservation.UpdatedAt),
	})

	return mapWriteError(err)
}

// GetByTransfer retrieves the reservation of a transfer.
func (r *ReservationRepository) GetByTransfer(ctx context.Context, tx usecase.Transaction, transferID string) (*domain.Reservation, error) {
	row, err := txQueries(tx).GetReservation(ctx, transferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReservationNotFound
		}

		return nil, err
	}

	return rowToReservation(row), nil
}

// UpdateStatus moves a reservation to COMMITTED or RELEASED.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, transferID string, status domain.ReservationStatus, updatedAt time.Time) error {
	n, err := txQueries(tx).UpdateReservationStatus(ctx, generated.UpdateReservationStatusParams{
		TransferID: transferID,
		Status:     string(status),
		UpdatedAt:  timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrReservationNotFound
	}

	return nil
}

// ListByPosition returns every reservation held against a position.
func (r *ReservationRepository) ListByPosition(ctx context.Context, key domain.PositionKey) ([]*domain.Reservation, error) {
	rows, err := r.queries.ListReservationsByPosition(ctx, generated.ListReservationsByPositionParams{
		AccountID: key.AccountID,
		Currency:  key.Currency,
	})
	if err != nil {
		return nil, err
	}

	reservations := make([]*domain.Reservation, 0, len(rows))
	for _, row := range rows {
		reservations = append(reservations, rowToReservation(row))
	}

	return reservations, nil
}

func rowToReservation(row generated.PositionReservation) *domain.Reservation {
	return &domain.Reservation{
		TransferID: row.TransferID,
		AccountID:  row.AccountID,
		Currency:   row.Currency,
		Amount:     numericToDecimal(row.Amount),
		Status:     domain.ReservationStatus(row.Status),
		Offset:     row.EventOffset,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/centralledger/internal/infrastructure/postgres/generated"
)

// MigrationLockRepository implements usecase.MigrationLockRepository on the
// single-row migration_lock table.
type MigrationLockRepository struct {
	queries *generated.Queries
}

// NewMigrationLockRepository creates a new MigrationLockRepository.
func NewMigrationLockRepository(db generated.DBTX) *MigrationLockRepository {
	return &MigrationLockRepository{queries: generated.New(db)}
}

// IsLocked reports whether a schema migration is in progress. A missing row reads as unlocked.
func (r *MigrationLockRepository) IsLocked(ctx context.Context) (bool, error) {
	locked, err := r.queries.GetMigrationLock(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return locked, nil
}

// SetLocked engages or releases the lock.
func (r *MigrationLockRepository) SetLocked(ctx context.Context, locked bool, at time.Time) error {
	lockedAt := pgtype.Timestamptz{}
	if locked {
		lockedAt = timeToPgTimestamptz(at)
	}
	return r.queries.SetMigrationLock(ctx, generated.SetMigrationLockParams{
		IsLocked: locked,
		LockedAt: lockedAt,
	})
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iho/centralledger/internal/domain"
)

// MigrationGate guards the consume loop against an in-progress schema migration.
type MigrationGate struct {
	lockRepo MigrationLockRepository
}

// NewMigrationGate creates a new MigrationGate.
func NewMigrationGate(lockRepo MigrationLockRepository) *MigrationGate {
	return &MigrationGate{lockRepo: lockRepo}
}

// Check returns domain.ErrMigrationLocked while the lock is engaged.
func (g *MigrationGate) Check(ctx context.Context) error {
	locked, err := g.lockRepo.IsLocked(ctx)
	if err != nil {
		return fmt.Errorf("read migration lock: %w", err)
	}
	if locked {
		return domain.ErrMigrationLocked
	}
	return nil
}

// Wait blocks until the lock is released, the backoff gives up, or ctx is done.
// notify is called before each wait with the reason the gate is still closed.
func (g *MigrationGate) Wait(ctx context.Context, b backoff.BackOff, notify func(err error, wait time.Duration)) error {
	return backoff.RetryNotify(func() error {
		return g.Check(ctx)
	}, backoff.WithContext(b, ctx), notify)
}

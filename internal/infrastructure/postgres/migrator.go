package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const pgErrUndefinedTable = "42P01"

// MigrationLocker engages the flag that keeps position handlers from consuming
// while the schema changes.
type MigrationLocker interface {
	SetLocked(ctx context.Context, locked bool, at time.Time) error
}

// Migrator applies schema migrations under the migration lock.
type Migrator struct {
	m      *migrate.Migrate
	locker MigrationLocker
	logger zerolog.Logger
}

// NewMigrator creates a Migrator for the migrations found at migrationsPath.
func NewMigrator(databaseURL, migrationsPath string, locker MigrationLocker, logger zerolog.Logger) (*Migrator, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{
		m:      m,
		locker: locker,
		logger: logger.With().Str("component", "migrator").Logger(),
	}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	return withMigrationLock(ctx, m.locker, m.logger, func() error {
		if err := m.m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				m.logger.Info().Msg("database migrations: no change")
				return nil
			}
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		m.logger.Info().Msg("database migrations: applied successfully")
		return nil
	})
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	return withMigrationLock(ctx, m.locker, m.logger, func() error {
		if err := m.m.Steps(-1); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}

		m.logger.Info().Msg("database migrations: rolled back successfully")
		return nil
	})
}

// Version returns the current schema version.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migrate source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// withMigrationLock runs fn with the lock engaged and always releases it.
// The lock table does not exist before the first migration or after the
// last rollback, so an undefined table is not an error.
func withMigrationLock(ctx context.Context, locker MigrationLocker, logger zerolog.Logger, fn func() error) error {
	if locker == nil {
		return fn()
	}

	if err := locker.SetLocked(ctx, true, time.Now().UTC()); err != nil && !isUndefinedTable(err) {
		return fmt.Errorf("engage migration lock: %w", err)
	}
	logger.Info().Msg("migration lock engaged")

	runErr := fn()

	if err := locker.SetLocked(ctx, false, time.Now().UTC()); err != nil && !isUndefinedTable(err) {
		return errors.Join(runErr, fmt.Errorf("release migration lock: %w", err))
	}
	logger.Info().Msg("migration lock released")

	return runErr
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUndefinedTable
}

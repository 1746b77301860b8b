package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/usecase"
	"github.com/iho/centralledger/internal/usecase/mocks"
)

func TestMigrationGate_Check(t *testing.T) {
	tests := []struct {
		name    string
		locked  bool
		readErr error
		want    error
	}{
		{"open", false, nil, nil},
		{"locked", true, nil, domain.ErrMigrationLocked},
		{"unreadable", false, errors.New("relation does not exist"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lock := mocks.NewMockMigrationLockRepository()
			lock.Set(tt.locked, tt.readErr)

			err := usecase.NewMigrationGate(lock).Check(context.Background())
			switch {
			case tt.readErr != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.readErr)
				assert.Contains(t, err.Error(), "read migration lock")
			case tt.want != nil:
				assert.ErrorIs(t, err, tt.want)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestMigrationGate_WaitUntilReleased(t *testing.T) {
	lock := mocks.NewMockMigrationLockRepository()
	lock.Set(true, nil)

	var waits atomic.Int32
	notify := func(err error, d time.Duration) {
		assert.ErrorIs(t, err, domain.ErrMigrationLocked)
		if waits.Add(1) == 3 {
			lock.Set(false, nil)
		}
	}

	err := usecase.NewMigrationGate(lock).Wait(context.Background(), backoff.NewConstantBackOff(time.Millisecond), notify)
	require.NoError(t, err)
	assert.Equal(t, int32(3), waits.Load())
}

func TestMigrationGate_WaitGivesUp(t *testing.T) {
	lock := mocks.NewMockMigrationLockRepository()
	lock.Set(true, nil)

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	err := usecase.NewMigrationGate(lock).Wait(context.Background(), b, nil)
	assert.ErrorIs(t, err, domain.ErrMigrationLocked)
}

func TestMigrationGate_WaitHonoursContext(t *testing.T) {
	lock := mocks.NewMockMigrationLockRepository()
	lock.Set(true, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := usecase.NewMigrationGate(lock).Wait(ctx, backoff.NewConstantBackOff(5*time.Millisecond), nil)
	assert.Error(t, err)
}

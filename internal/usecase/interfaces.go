package usecase

import (
	"context"
	"time"

	"github.com/iho/centralledger/internal/domain"
)

// PositionRepository defines data access for position records.
type PositionRepository interface {
	Create(ctx context.Context, tx Transaction, position *domain.Position) error
	GetByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error)
	// GetByKeysForUpdate locks the positions in the given order. Missing keys are omitted.
	GetByKeysForUpdate(ctx context.Context, tx Transaction, keys []domain.PositionKey) ([]*domain.Position, error)
	Update(ctx context.Context, tx Transaction, position *domain.Position) error
}

// ChangeLogRepository defines data access for the append-only position change log.
type ChangeLogRepository interface {
	// Create returns domain.ErrDuplicate when (transfer id, account id) already exists.
	Create(ctx context.Context, tx Transaction, entry *domain.ChangeLogEntry) error
	Exists(ctx context.Context, tx Transaction, transferID, accountID string) (bool, error)
	ListByPosition(ctx context.Context, key domain.PositionKey) ([]*domain.ChangeLogEntry, error)
}

// ReservationRepository defines data access for payer reservations.
type ReservationRepository interface {
	// Create returns domain.ErrDuplicate when a reservation already exists for the transfer.
	Create(ctx context.Context, tx Transaction, reservation *domain.Reservation) error
	GetByTransfer(ctx context.Context, tx Transaction, transferID string) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, tx Transaction, transferID string, status domain.ReservationStatus, updatedAt time.Time) error
	ListByPosition(ctx context.Context, key domain.PositionKey) ([]*domain.Reservation, error)
}

// TransferRepository defines data access for transfers.
type TransferRepository interface {
	Create(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id string) (*domain.Transfer, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transfer, error)
	UpdateState(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
	ListExpiredReserved(ctx context.Context, now time.Time, limit int) ([]*domain.Transfer, error)
}

// StateChangeRepository defines data access for the transfer state history.
type StateChangeRepository interface {
	Create(ctx context.Context, tx Transaction, change *domain.StateChange) error
	ListByTransfer(ctx context.Context, transferID string) ([]*domain.StateChange, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int, skipKeys []string) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// MigrationLockRepository reads the schema migration flag.
type MigrationLockRepository interface {
	IsLocked(ctx context.Context) (bool, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation on transient store failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Message is a single record delivered from a topic partition.
type Message struct {
	Timestamp time.Time
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
}

// MessageHandler processes one message. A nil error acknowledges it.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher produces records onto a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// ProxyCache is the key/value side channel used for inter-scheme routing.
type ProxyCache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	HealthCheck(ctx context.Context) (bool, error)
}

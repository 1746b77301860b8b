package mocks

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/usecase"
)

// Store is an in-memory position ledger shared by the mock repositories.
// Writes made through a MockTransaction are staged and applied on Commit;
// rows read "for update" stay locked until the transaction ends.
type Store struct {
	mu           sync.Mutex
	positions    map[domain.PositionKey]*domain.Position
	changes      []*domain.ChangeLogEntry
	reservations map[string]*domain.Reservation
	transfers    map[string]*domain.Transfer
	stateChanges []*domain.StateChange
	outbox       []*domain.OutboxEvent

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// AfterLock is called once a transaction holds the position rows it asked for.
	AfterLock func(keys []domain.PositionKey)
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		positions:    make(map[domain.PositionKey]*domain.Position),
		reservations: make(map[string]*domain.Reservation),
		transfers:    make(map[string]*domain.Transfer),
		locks:        make(map[string]*sync.Mutex),
	}
}

// PutPosition seeds a committed position.
func (s *Store) PutPosition(p *domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.positions[p.Key()] = &cp
}

// PutTransfer seeds a committed transfer.
func (s *Store) PutTransfer(t *domain.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.transfers[t.ID] = &cp
}

// PutReservation seeds a committed reservation.
func (s *Store) PutReservation(r *domain.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reservations[r.TransferID] = &cp
}

// PutChange seeds a committed change-log entry.
func (s *Store) PutChange(e *domain.ChangeLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.changes = append(s.changes, &cp)
}

// Position returns a copy of the committed position, or nil.
func (s *Store) Position(key domain.PositionKey) *domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.positions[key]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// Transfer returns a copy of the committed transfer, or nil.
func (s *Store) Transfer(id string) *domain.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transfers[id]; ok {
		cp := *t
		return &cp
	}
	return nil
}

// Reservation returns a copy of the committed reservation, or nil.
func (s *Store) Reservation(transferID string) *domain.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[transferID]; ok {
		cp := *r
		return &cp
	}
	return nil
}

// Changes returns the committed change-log entries for a transfer.
func (s *Store) Changes(transferID string) []*domain.ChangeLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ChangeLogEntry
	for _, e := range s.changes {
		if e.TransferID == transferID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// StateChanges returns the committed state history for a transfer.
func (s *Store) StateChanges(transferID string) []*domain.StateChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.StateChange
	for _, c := range s.stateChanges {
		if c.TransferID == transferID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

// Outbox returns every committed outbox event.
func (s *Store) Outbox() []*domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

func (s *Store) lock(tx *MockTransaction, name string) {
	if tx == nil || tx.holds(name) {
		return
	}

	s.locksMu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	tx.held = append(tx.held, name)
}

func (s *Store) unlock(names []string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	for _, name := range names {
		s.locks[name].Unlock()
	}
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	store *Store

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager(store *Store) *MockTransactionManager {
	return &MockTransactionManager{store: store}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{store: m.store}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	store  *Store
	staged []func(s *Store)
	held   []string
	done   bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) holds(name string) bool {
	for _, h := range m.held {
		if h == name {
			return true
		}
	}
	return false
}

func (m *MockTransaction) stage(op func(s *Store)) {
	m.staged = append(m.staged, op)
}

func (m *MockTransaction) end() {
	m.done = true
	if m.store != nil {
		m.store.unlock(m.held)
	}
	m.held = nil
	m.staged = nil
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.done {
		return fmt.Errorf("transaction already closed")
	}
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			m.end()
			return err
		}
	}
	if m.store != nil {
		m.store.mu.Lock()
		for _, op := range m.staged {
			op(m.store)
		}
		m.store.mu.Unlock()
	}
	m.end()
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.done {
		return nil
	}
	if m.RollbackFunc != nil {
		_ = m.RollbackFunc(ctx)
	}
	m.end()
	return nil
}

func asTx(tx usecase.Transaction) *MockTransaction {
	mt, _ := tx.(*MockTransaction)
	return mt
}

// MockPositionRepository is a mock implementation of PositionRepository.
type MockPositionRepository struct {
	store *Store

	GetByKeyFunc func(ctx context.Context, key domain.PositionKey) (*domain.Position, error)
	UpdateFunc   func(ctx context.Context, tx usecase.Transaction, position *domain.Position) error
}

func NewMockPositionRepository(store *Store) *MockPositionRepository {
	return &MockPositionRepository{store: store}
}

func (m *MockPositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	if m.store.Position(position.Key()) != nil {
		return domain.ErrDuplicate
	}
	cp := *position
	asTx(tx).stage(func(s *Store) { s.positions[cp.Key()] = &cp })
	return nil
}

func (m *MockPositionRepository) GetByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	if m.GetByKeyFunc != nil {
		return m.GetByKeyFunc(ctx, key)
	}
	if p := m.store.Position(key); p != nil {
		return p, nil
	}
	return nil, domain.ErrPositionNotFound
}

func (m *MockPositionRepository) GetByKeysForUpdate(ctx context.Context, tx usecase.Transaction, keys []domain.PositionKey) ([]*domain.Position, error) {
	mt := asTx(tx)
	for _, key := range keys {
		m.store.lock(mt, "position:"+key.String())
	}
	if m.store.AfterLock != nil {
		m.store.AfterLock(keys)
	}

	var positions []*domain.Position
	for _, key := range keys {
		if p := m.store.Position(key); p != nil {
			positions = append(positions, p)
		}
	}
	return positions, nil
}

func (m *MockPositionRepository) Update(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, position)
	}
	cp := *position
	asTx(tx).stage(func(s *Store) { s.positions[cp.Key()] = &cp })
	return nil
}

// MockChangeLogRepository is a mock implementation of ChangeLogRepository.
type MockChangeLogRepository struct {
	store *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.ChangeLogEntry) error
}

func NewMockChangeLogRepository(store *Store) *MockChangeLogRepository {
	return &MockChangeLogRepository{store: store}
}

func (m *MockChangeLogRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.ChangeLogEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	for _, e := range m.store.Changes(entry.TransferID) {
		if e.AccountID == entry.AccountID && e.Currency == entry.Currency {
			return domain.ErrDuplicate
		}
	}
	cp := *entry
	asTx(tx).stage(func(s *Store) { s.changes = append(s.changes, &cp) })
	return nil
}

func (m *MockChangeLogRepository) Exists(ctx context.Context, tx usecase.Transaction, transferID, accountID string) (bool, error) {
	for _, e := range m.store.Changes(transferID) {
		if e.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockChangeLogRepository) ListByPosition(ctx context.Context, key domain.PositionKey) ([]*domain.ChangeLogEntry, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var entries []*domain.ChangeLogEntry
	for _, e := range m.store.changes {
		if e.AccountID == key.AccountID && e.Currency == key.Currency {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	return entries, nil
}

// MockReservationRepository is a mock implementation of ReservationRepository.
type MockReservationRepository struct {
	store *Store
}

func NewMockReservationRepository(store *Store) *MockReservationRepository {
	return &MockReservationRepository{store: store}
}

func (m *MockReservationRepository) Create(ctx context.Context, tx usecase.Transaction, reservation *domain.Reservation) error {
	if m.store.Reservation(reservation.TransferID) != nil {
		return domain.ErrDuplicate
	}
	cp := *reservation
	asTx(tx).stage(func(s *Store) { s.reservations[cp.TransferID] = &cp })
	return nil
}

func (m *MockReservationRepository) GetByTransfer(ctx context.Context, tx usecase.Transaction, transferID string) (*domain.Reservation, error) {
	if r := m.store.Reservation(transferID); r != nil {
		return r, nil
	}
	return nil, domain.ErrReservationNotFound
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, transferID string, status domain.ReservationStatus, updatedAt time.Time) error {
	if m.store.Reservation(transferID) == nil {
		return domain.ErrReservationNotFound
	}
	asTx(tx).stage(func(s *Store) {
		r := s.reservations[transferID]
		r.Status = status
		r.UpdatedAt = updatedAt
	})
	return nil
}

func (m *MockReservationRepository) ListByPosition(ctx context.Context, key domain.PositionKey) ([]*domain.Reservation, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*domain.Reservation
	for _, r := range m.store.reservations {
		if r.AccountID == key.AccountID && r.Currency == key.Currency {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockTransferRepository is a mock implementation of TransferRepository.
type MockTransferRepository struct {
	store *Store

	GetByIDFunc func(ctx context.Context, id string) (*domain.Transfer, error)
}

func NewMockTransferRepository(store *Store) *MockTransferRepository {
	return &MockTransferRepository{store: store}
}

func (m *MockTransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	if m.store.Transfer(transfer.ID) != nil {
		return domain.ErrDuplicate
	}
	cp := *transfer
	asTx(tx).stage(func(s *Store) { s.transfers[cp.ID] = &cp })
	return nil
}

func (m *MockTransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	if t := m.store.Transfer(id); t != nil {
		return t, nil
	}
	return nil, domain.ErrTransferNotFound
}

func (m *MockTransferRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transfer, error) {
	m.store.lock(asTx(tx), "transfer:"+id)
	if t := m.store.Transfer(id); t != nil {
		return t, nil
	}
	return nil, domain.ErrTransferNotFound
}

func (m *MockTransferRepository) UpdateState(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	cp := *transfer
	asTx(tx).stage(func(s *Store) { s.transfers[cp.ID] = &cp })
	return nil
}

func (m *MockTransferRepository) ListExpiredReserved(ctx context.Context, now time.Time, limit int) ([]*domain.Transfer, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*domain.Transfer
	for _, t := range m.store.transfers {
		if t.State == domain.TransferStateReserved && t.IsExpired(now) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockStateChangeRepository is a mock implementation of StateChangeRepository.
type MockStateChangeRepository struct {
	store *Store
}

func NewMockStateChangeRepository(store *Store) *MockStateChangeRepository {
	return &MockStateChangeRepository{store: store}
}

func (m *MockStateChangeRepository) Create(ctx context.Context, tx usecase.Transaction, change *domain.StateChange) error {
	cp := *change
	asTx(tx).stage(func(s *Store) { s.stateChanges = append(s.stateChanges, &cp) })
	return nil
}

func (m *MockStateChangeRepository) ListByTransfer(ctx context.Context, transferID string) ([]*domain.StateChange, error) {
	return m.store.StateChanges(transferID), nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	store *Store

	MarkPublishedFunc func(ctx context.Context, id string, publishedAt time.Time) error
}

func NewMockOutboxRepository(store *Store) *MockOutboxRepository {
	return &MockOutboxRepository{store: store}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	cp := *event
	asTx(tx).stage(func(s *Store) { s.outbox = append(s.outbox, &cp) })
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int, skipKeys []string) ([]*domain.OutboxEvent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.store.outbox {
		if !e.Published && !slices.Contains(skipKeys, e.Key) {
			cp := *e
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, e := range m.store.outbox {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	kept := m.store.outbox[:0]
	for _, e := range m.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.store.outbox = kept
	return nil
}

// MockMigrationLockRepository is a mock implementation of MigrationLockRepository.
type MockMigrationLockRepository struct {
	mu     sync.Mutex
	locked bool
	err    error
}

func NewMockMigrationLockRepository() *MockMigrationLockRepository {
	return &MockMigrationLockRepository{}
}

// Set changes the lock state and the error returned by IsLocked.
func (m *MockMigrationLockRepository) Set(locked bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = locked
	m.err = err
}

func (m *MockMigrationLockRepository) IsLocked(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked, m.err
}

// MockRetrier is a mock implementation of Retrier. It retries up to Attempts
// times while ShouldRetry reports true.
type MockRetrier struct {
	Attempts    int
	ShouldRetry func(err error) bool
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{Attempts: 1}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < max(m.Attempts, 1); i++ {
		err = operation()
		if err == nil || m.ShouldRetry == nil || !m.ShouldRetry(err) {
			return err
		}
	}
	return err
}

// PublishedMessage is a record captured by MockPublisher.
type PublishedMessage struct {
	Topic string
	Key   string
	Value []byte
}

// MockPublisher is a mock implementation of Publisher that records messages.
type MockPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage

	PublishFunc func(ctx context.Context, topic, key string, value []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, topic, key, value); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, PublishedMessage{Topic: topic, Key: key, Value: append([]byte(nil), value...)})
	return nil
}

// Messages returns the messages published to topic.
func (m *MockPublisher) Messages(topic string) []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PublishedMessage
	for _, msg := range m.messages {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockNotifier counts outbox notifications.
type MockNotifier struct {
	mu    sync.Mutex
	count int
}

func (m *MockNotifier) Notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
}

// Count returns how many times Notify was called.
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

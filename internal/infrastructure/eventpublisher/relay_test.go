package eventpublisher

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
	"github.com/iho/centralledger/internal/usecase"
)

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{{ID: "evt-1", Topic: domain.TopicNotificationEvent, Key: "t-1", EventType: "commit", Payload: []byte(`{}`)}},
	}
	pub := &stubPublisher{}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	r := newTestRelay(repo, pub, m)

	n, err := r.processEvents(context.Background(), map[string]bool{})
	if err != nil {
		t.Fatalf("processEvents failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one fetched event, got %d", n)
	}

	if len(pub.published) != 1 || pub.published[0].topic != domain.TopicNotificationEvent || pub.published[0].key != "t-1" {
		t.Fatalf("unexpected publish: %#v", pub.published)
	}
	if repo.markedIDs()[0] != "evt-1" {
		t.Fatalf("expected event to be marked published, got %#v", repo.marked)
	}
	if got := testutil.ToFloat64(m.OutboxPublished); got != 1 {
		t.Fatalf("expected published counter 1, got %v", got)
	}
}

func TestProcessEventsHoldsBackSameKeyAfterFailure(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", Key: "t-1", EventType: "prepare"},
			{ID: "evt-2", Key: "t-2", EventType: "prepare"},
			{ID: "evt-3", Key: "t-1", EventType: "commit"},
		},
	}
	pub := &stubPublisher{
		errorsByKey: map[string]error{"t-1": errors.New("fail")},
	}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	r := newTestRelay(repo, pub, m)

	if _, err := r.processEvents(context.Background(), map[string]bool{}); err != nil {
		t.Fatalf("processEvents returned error: %v", err)
	}

	if len(pub.published) != 1 || pub.published[0].key != "t-2" {
		t.Fatalf("expected only t-2 to be published, got %#v", pub.published)
	}
	if pub.attempts["t-1"] != 1 {
		t.Fatalf("expected evt-3 to be held back behind evt-1, got %d attempts", pub.attempts["t-1"])
	}
	if marked := repo.markedIDs(); len(marked) != 1 || marked[0] != "evt-2" {
		t.Fatalf("expected only evt-2 to be marked, got %#v", marked)
	}
	if got := testutil.ToFloat64(m.OutboxFailed); got != 1 {
		t.Fatalf("expected failed counter 1, got %v", got)
	}
}

func TestDrainReachesOtherKeysBehindAFailingKey(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", Key: "t-1", EventType: "prepare"},
			{ID: "evt-2", Key: "t-1", EventType: "commit"},
			{ID: "evt-3", Key: "t-2", EventType: "prepare"},
		},
	}
	pub := &stubPublisher{
		errorsByKey: map[string]error{"t-1": errors.New("fail")},
	}
	r := newTestRelay(repo, pub, nil)
	r.batchSize = 2

	r.drain(context.Background())

	if len(pub.published) != 1 || pub.published[0].key != "t-2" {
		t.Fatalf("expected t-2 to be published past the blocked key, got %#v", pub.published)
	}
	if pub.attempts["t-1"] != 1 {
		t.Fatalf("expected t-1 to be tried once per pass, got %d attempts", pub.attempts["t-1"])
	}
	if marked := repo.markedIDs(); len(marked) != 1 || marked[0] != "evt-3" {
		t.Fatalf("expected only evt-3 to be marked, got %#v", marked)
	}
}

func TestProcessEventsStopsWhenMarkFails(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", Key: "t-1"},
			{ID: "evt-2", Key: "t-1"},
		},
		markErr: errors.New("connection reset"),
	}
	pub := &stubPublisher{}
	r := newTestRelay(repo, pub, nil)

	if _, err := r.processEvents(context.Background(), map[string]bool{}); err == nil {
		t.Fatalf("expected mark failure to be returned")
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected the batch to stop after the failed mark, got %d publishes", len(pub.published))
	}
}

func TestNotifyWakesRelay(t *testing.T) {
	repo := &stubOutboxRepo{}
	pub := &stubPublisher{}
	r := newTestRelay(repo, pub, nil)
	r.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	repo.add(&domain.OutboxEvent{ID: "evt-1", Key: "t-1"})
	r.Notify()
	r.Notify()

	deadline := time.After(time.Second)
	for len(repo.markedIDs()) == 0 {
		select {
		case <-deadline:
			t.Fatal("relay was not woken by Notify")
		case <-time.After(5 * time.Millisecond):
			r.Notify()
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestCleanupDeletesExpiredEvents(t *testing.T) {
	repo := &stubOutboxRepo{}
	r := newTestRelay(repo, &stubPublisher{}, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	r.retention = 24 * time.Hour

	r.cleanup(context.Background())

	if !repo.deletedBefore.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", repo.deletedBefore)
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	r := newTestRelay(&stubOutboxRepo{}, &stubPublisher{}, nil)
	r.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func newTestRelay(repo *stubOutboxRepo, pub *stubPublisher, m *metrics.Metrics) *Relay {
	return NewRelay(Config{
		OutboxRepo: repo,
		Publisher:  pub,
		Metrics:    m,
		Logger:     zerolog.Nop(),
		BatchSize:  10,
		Interval:   5 * time.Millisecond,
	})
}

type stubOutboxRepo struct {
	mu            sync.Mutex
	events        []*domain.OutboxEvent
	marked        []string
	markErr       error
	deletedBefore time.Time
}

var _ usecase.OutboxRepository = (*stubOutboxRepo)(nil)

func (s *stubOutboxRepo) add(e *domain.OutboxEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *stubOutboxRepo) markedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.marked...)
}

func (s *stubOutboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return nil
}

func (s *stubOutboxRepo) GetUnpublished(ctx context.Context, limit int, skipKeys []string) ([]*domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range s.events {
		if !e.Published && !slices.Contains(skipKeys, e.Key) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubOutboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, id)
	for _, e := range s.events {
		if e.ID == id {
			e.Published = true
		}
	}
	return nil
}

func (s *stubOutboxRepo) DeletePublished(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedBefore = before
	return nil
}

type publishedRecord struct {
	topic string
	key   string
	value []byte
}

type stubPublisher struct {
	mu          sync.Mutex
	published   []publishedRecord
	attempts    map[string]int
	errorsByKey map[string]error
}

func (s *stubPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == nil {
		s.attempts = map[string]int{}
	}
	s.attempts[key]++
	if err := s.errorsByKey[key]; err != nil {
		return err
	}
	s.published = append(s.published, publishedRecord{topic: topic, key: key, value: value})
	return nil
}

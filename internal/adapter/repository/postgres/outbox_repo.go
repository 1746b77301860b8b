package postgres

import (
	"context"
	"time"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/postgres/generated"
	"github.com/iho/centralledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	queries *generated.Queries
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db generated.DBTX) *OutboxRepository {
	return &OutboxRepository{queries: generated.New(db)}
}

// Create stages an outbox event inside the transaction that produced it.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return txQueries(tx).CreateOutboxEvent(ctx, generated.CreateOutboxEventParams{
		ID:         event.ID,
		Topic:      event.Topic,
		MessageKey: event.Key,
		EventType:  event.EventType,
		Payload:    event.Payload,
		Published:  event.Published,
		CreatedAt:  timeToPgTimestamptz(event.CreatedAt),
	})
}

// GetUnpublished retrieves unpublished events in creation order, leaving out
// events whose key is in skipKeys.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int, skipKeys []string) ([]*domain.OutboxEvent, error) {
	if skipKeys == nil {
		skipKeys = []string{}
	}
	rows, err := r.queries.GetUnpublishedEvents(ctx, generated.GetUnpublishedEventsParams{
		Limit:    int32(limit),
		SkipKeys: skipKeys,
	})
	if err != nil {
		return nil, err
	}

	events := make([]*domain.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, rowToOutboxEvent(row))
	}

	return events, nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.queries.MarkEventPublished(ctx, generated.MarkEventPublishedParams{
		ID:          id,
		PublishedAt: timeToPgTimestamptz(publishedAt),
	})
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.queries.DeletePublishedEvents(ctx, timeToPgTimestamptz(before))
}

func rowToOutboxEvent(row generated.OutboxEvent) *domain.OutboxEvent {
	var publishedAt *time.Time
	if row.PublishedAt.Valid {
		t := row.PublishedAt.Time
		publishedAt = &t
	}

	return &domain.OutboxEvent{
		ID:          row.ID,
		Topic:       row.Topic,
		Key:         row.MessageKey,
		EventType:   row.EventType,
		Payload:     row.Payload,
		CreatedAt:   row.CreatedAt.Time,
		PublishedAt: publishedAt,
		Published:   row.Published,
	}
}

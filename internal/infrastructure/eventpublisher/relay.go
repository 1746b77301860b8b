package eventpublisher

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
	"github.com/iho/centralledger/internal/usecase"
)

// Relay publishes committed outbox events to the broker.
// It polls on an interval and also runs as soon as it is notified.
type Relay struct {
	outboxRepo usecase.OutboxRepository
	publisher  usecase.Publisher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
	wake       chan struct{}
	batchSize  int
	interval   time.Duration
	retention  time.Duration
}

// Config for Relay.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  usecase.Publisher
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	Now        func() time.Time
	BatchSize  int           // Number of events to fetch per batch
	Interval   time.Duration // Polling interval
	Retention  time.Duration // How long published events are kept; zero keeps them forever
}

// NewRelay creates a new Relay.
func NewRelay(cfg Config) *Relay {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Relay{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "outbox-relay").Logger(),
		now:        cfg.Now,
		wake:       make(chan struct{}, 1),
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
		retention:  cfg.Retention,
	}
}

// Notify wakes the relay without blocking the caller.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start runs the relay until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info().
		Int("batch_size", r.batchSize).
		Dur("interval", r.interval).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Process immediately on start
	r.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay shutting down")
			return ctx.Err()
		case <-r.wake:
			r.drain(ctx)
		case <-ticker.C:
			r.drain(ctx)
			r.cleanup(ctx)
		}
	}
}

// drain processes batches until the outbox is empty. Keys that fail stay
// blocked for the rest of the pass and are left out of later batches, so one
// failing key cannot keep the others from being fetched.
func (r *Relay) drain(ctx context.Context) {
	blocked := map[string]bool{}
	for ctx.Err() == nil {
		fetched, err := r.processEvents(ctx, blocked)
		if err != nil {
			r.logger.Error().Err(err).Msg("error processing outbox events")
			return
		}
		if fetched < r.batchSize {
			return
		}
	}
}

// processEvents publishes one batch and returns how many events it fetched.
// Once an event fails its key is added to blocked, and later events with the
// same key are held back so a receiver never sees them out of order.
func (r *Relay) processEvents(ctx context.Context, blocked map[string]bool) (int, error) {
	events, err := r.outboxRepo.GetUnpublished(ctx, r.batchSize, slices.Sorted(maps.Keys(blocked)))
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	r.logger.Debug().Int("count", len(events)).Msg("processing outbox events")

	for _, event := range events {
		if blocked[event.Key] {
			continue
		}

		if err := r.publishEvent(ctx, event); err != nil {
			blocked[event.Key] = true
			if r.metrics != nil {
				r.metrics.OutboxFailed.Inc()
			}
			r.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Str("key", event.Key).
				Msg("failed to publish event")
			continue
		}

		if err := r.outboxRepo.MarkPublished(ctx, event.ID, r.now()); err != nil {
			// Stop here: the event would otherwise be published again ahead of its successors.
			r.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to mark event as published")
			return len(events), err
		}

		if r.metrics != nil {
			r.metrics.OutboxPublished.Inc()
		}
	}

	return len(events), nil
}

func (r *Relay) publishEvent(ctx context.Context, event *domain.OutboxEvent) error {
	if err := r.publisher.Publish(ctx, event.Topic, event.Key, event.Payload); err != nil {
		return err
	}

	r.logger.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("topic", event.Topic).
		Msg("event published")

	return nil
}

func (r *Relay) cleanup(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	if err := r.outboxRepo.DeletePublished(ctx, r.now().Add(-r.retention)); err != nil {
		r.logger.Warn().Err(err).Msg("failed to delete published outbox events")
	}
}

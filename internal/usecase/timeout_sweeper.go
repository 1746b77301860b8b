package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
)

// TimeoutSweeperConfig holds the dependencies of a TimeoutSweeper.
type TimeoutSweeperConfig struct {
	TransferRepo  TransferRepository
	Publisher     Publisher
	IDGen         IDGenerator
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
	Now           func() time.Time
	PositionTopic string
	Interval      time.Duration
	BatchSize     int
}

// TimeoutSweeper emits timeout events for RESERVED transfers past their expiry.
// The Position Handler applies them like any other event.
type TimeoutSweeper struct {
	transferRepo  TransferRepository
	publisher     Publisher
	idGen         IDGenerator
	metrics       *metrics.Metrics
	logger        zerolog.Logger
	now           func() time.Time
	positionTopic string
	interval      time.Duration
	batchSize     int
}

// NewTimeoutSweeper creates a new TimeoutSweeper.
func NewTimeoutSweeper(cfg TimeoutSweeperConfig) *TimeoutSweeper {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.PositionTopic == "" {
		cfg.PositionTopic = domain.TopicTransferPosition
	}
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultSweepBatchSize
	}

	return &TimeoutSweeper{
		transferRepo:  cfg.TransferRepo,
		publisher:     cfg.Publisher,
		idGen:         cfg.IDGen,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger.With().Str("component", "timeout-sweeper").Logger(),
		now:           cfg.Now,
		positionTopic: cfg.PositionTopic,
		interval:      cfg.Interval,
		batchSize:     cfg.BatchSize,
	}
}

// Start sweeps on every interval until the context is cancelled.
func (s *TimeoutSweeper) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Int("batch_size", s.batchSize).Msg("timeout sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("timeout sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("timeout sweep failed")
			}
		}
	}
}

// Sweep emits one timeout event per expired reservation and returns how many were emitted.
// A transfer swept twice is harmless: the second event is a duplicate for the Position Handler.
func (s *TimeoutSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()

	expired, err := s.transferRepo.ListExpiredReserved(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	emitted := 0
	for _, t := range expired {
		ev := &domain.Event{
			ID:         s.idGen.Generate(),
			TransferID: t.ID,
			Action:     domain.ActionTimeout,
			Reason:     domain.ReasonExpired,
			CreatedAt:  now,
		}

		if err := emit(ctx, s.publisher, s.positionTopic, t.PayerKey().String(), ev); err != nil {
			return emitted, err
		}
		emitted++
	}

	if emitted > 0 {
		s.logger.Info().Int("count", emitted).Msg("expired reservations swept")
		if s.metrics != nil {
			s.metrics.TransfersSwept.Add(float64(emitted))
		}
	}

	return emitted, nil
}

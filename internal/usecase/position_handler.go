package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
)

// errStaleKeys means the transfer seen under lock involves positions that were not locked.
var errStaleKeys = errors.New("locked positions do not match transfer")

// Consumer delivers messages from the subscribed topics to a handler.
type Consumer interface {
	Consume(ctx context.Context, handle MessageHandler) error
}

// OutboxNotifier is signalled after a commit that wrote outbox rows.
type OutboxNotifier interface {
	Notify()
}

// PositionHandlerConfig holds the dependencies of a PositionHandler.
type PositionHandlerConfig struct {
	TxManager         TransactionManager
	PositionRepo      PositionRepository
	ChangeLogRepo     ChangeLogRepository
	ReservationRepo   ReservationRepository
	TransferRepo      TransferRepository
	StateChangeRepo   StateChangeRepository
	OutboxRepo        OutboxRepository
	Gate              *MigrationGate
	Retrier           Retrier
	IDGen             IDGenerator
	Notifier          OutboxNotifier
	Metrics           *metrics.Metrics
	Logger            zerolog.Logger
	Now               func() time.Time
	NotificationTopic string
}

// PositionHandler applies position-topic events to the position ledger.
type PositionHandler struct {
	txManager         TransactionManager
	positionRepo      PositionRepository
	changeLogRepo     ChangeLogRepository
	reservationRepo   ReservationRepository
	transferRepo      TransferRepository
	stateChangeRepo   StateChangeRepository
	outboxRepo        OutboxRepository
	gate              *MigrationGate
	retrier           Retrier
	idGen             IDGenerator
	notifier          OutboxNotifier
	metrics           *metrics.Metrics
	logger            zerolog.Logger
	now               func() time.Time
	notificationTopic string
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(cfg PositionHandlerConfig) *PositionHandler {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NotificationTopic == "" {
		cfg.NotificationTopic = domain.TopicNotificationEvent
	}

	return &PositionHandler{
		txManager:         cfg.TxManager,
		positionRepo:      cfg.PositionRepo,
		changeLogRepo:     cfg.ChangeLogRepo,
		reservationRepo:   cfg.ReservationRepo,
		transferRepo:      cfg.TransferRepo,
		stateChangeRepo:   cfg.StateChangeRepo,
		outboxRepo:        cfg.OutboxRepo,
		gate:              cfg.Gate,
		retrier:           cfg.Retrier,
		idGen:             cfg.IDGen,
		notifier:          cfg.Notifier,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger.With().Str("component", "position-handler").Logger(),
		now:               cfg.Now,
		notificationTopic: cfg.NotificationTopic,
	}
}

// Start refuses to consume while the migration lock is engaged, otherwise
// consumes until ctx is done.
func (h *PositionHandler) Start(ctx context.Context, consumer Consumer) error {
	if h.gate != nil {
		if err := h.gate.Check(ctx); err != nil {
			return err
		}
	}

	h.logger.Info().Msg("position handler started")
	return consumer.Consume(ctx, h.Handle)
}

// Handle applies one position event. A nil return acknowledges the message;
// any error leaves it unacknowledged for redelivery.
func (h *PositionHandler) Handle(ctx context.Context, msg *Message) error {
	log := h.logger.With().
		Str("topic", msg.Topic).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Logger()

	ev, err := domain.DecodeEvent(msg.Value)
	if err != nil {
		log.Warn().Err(err).Msg("dropping malformed event")
		h.observe("unknown", "invalid")
		return nil
	}

	log = log.With().Str("transfer_id", ev.TransferID).Str("action", string(ev.Action)).Logger()

	out, err := h.process(ctx, msg, ev)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		log.Info().Msg("event already applied, skipping")
		h.observe(string(ev.Action), "duplicate")
		if h.metrics != nil {
			h.metrics.EventDuplicates.WithLabelValues(string(ev.Action)).Inc()
		}
		return nil
	case errors.Is(err, domain.ErrInvalidEvent):
		log.Warn().Err(err).Msg("dropping invalid event")
		h.observe(string(ev.Action), "invalid")
		return nil
	case err != nil:
		log.Error().Err(err).Msg("failed to apply event")
		h.observe(string(ev.Action), "failed")
		return err
	}

	if out.Transfer != nil {
		log.Info().
			Str("state", string(out.Transfer.State)).
			Str("reason", string(out.Transfer.Reason)).
			Msg("event applied")
		if h.metrics != nil && out.Transfer.State == domain.TransferStateAborted {
			h.metrics.TransfersAborted.WithLabelValues(string(out.Transfer.Reason)).Inc()
		}
	} else {
		log.Info().Msg("event rejected by transfer state")
	}
	h.observe(string(ev.Action), "applied")

	if len(out.Notifications) > 0 && h.notifier != nil {
		h.notifier.Notify()
	}

	return nil
}

func (h *PositionHandler) process(ctx context.Context, msg *Message, ev *domain.Event) (*domain.Outcome, error) {
	var out *domain.Outcome

	for attempt := 0; attempt < 2; attempt++ {
		keys, err := h.resolveKeys(ctx, ev)
		if err != nil {
			return nil, err
		}

		retries := 0
		err = h.retrier.Retry(ctx, func() error {
			if retries > 0 && h.metrics != nil {
				h.metrics.PositionTxRetries.Inc()
			}
			retries++

			var applyErr error
			out, applyErr = h.apply(ctx, msg, ev, keys)
			return applyErr
		})
		if errors.Is(err, errStaleKeys) {
			continue
		}
		return out, err
	}

	return nil, errStaleKeys
}

// resolveKeys finds the positions an event touches without taking locks.
func (h *PositionHandler) resolveKeys(ctx context.Context, ev *domain.Event) ([]domain.PositionKey, error) {
	if ev.Action == domain.ActionPrepare {
		t, err := ev.Transfer.ToTransfer()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
		}
		return []domain.PositionKey{t.PayerKey(), t.PayeeKey()}, nil
	}

	t, err := h.transferRepo.GetByID(ctx, ev.TransferID)
	if errors.Is(err, domain.ErrTransferNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []domain.PositionKey{t.PayerKey(), t.PayeeKey()}, nil
}

func (h *PositionHandler) apply(ctx context.Context, msg *Message, ev *domain.Event, keys []domain.PositionKey) (*domain.Outcome, error) {
	start := time.Now()
	if h.metrics != nil {
		defer func() { h.metrics.PositionTxDuration.Observe(time.Since(start).Seconds()) }()
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := h.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 1. Lock positions in sorted order (DEADLOCK PREVENTION), then the transfer
	locked, err := h.positionRepo.GetByKeysForUpdate(ctx, tx, domain.SortKeys(keys))
	if err != nil {
		return nil, err
	}

	positions := make(map[domain.PositionKey]*domain.Position, len(locked))
	for _, p := range locked {
		positions[p.Key()] = p
	}

	current, err := h.transferRepo.GetByIDForUpdate(ctx, tx, ev.TransferID)
	if errors.Is(err, domain.ErrTransferNotFound) {
		current = nil
	} else if err != nil {
		return nil, err
	}

	// A prepare for a known transfer id never touches positions. Its keys come
	// from the payload, so a conflicting payer or payee would never be covered.
	if current != nil && ev.Action == domain.ActionPrepare {
		if !ev.Transfer.SameTerms(current) {
			h.logger.Warn().
				Str("transfer_id", ev.TransferID).
				Str("payer", ev.Transfer.PayerID).
				Str("payee", ev.Transfer.PayeeID).
				Msg("prepare reuses a transfer id with different terms")
		}
		return nil, domain.ErrDuplicate
	}

	// Keys for decisions come from an unlocked read and may have gone stale.
	if current != nil && !covers(keys, current.PayerKey(), current.PayeeKey()) {
		return nil, errStaleKeys
	}

	// 2. Idempotency witness
	applied, err := h.alreadyApplied(ctx, tx, ev, current)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, domain.ErrDuplicate
	}

	// 3. Transition
	var payer, payee *domain.Position
	switch {
	case current != nil:
		payer, payee = positions[current.PayerKey()], positions[current.PayeeKey()]
	case ev.Transfer != nil:
		t, _ := ev.Transfer.ToTransfer()
		payer, payee = positions[t.PayerKey()], positions[t.PayeeKey()]
	}

	now := h.now()
	out, err := domain.Transition(current, ev, payer, payee, now)
	if err != nil {
		return nil, err
	}
	if out.Duplicate {
		return nil, domain.ErrDuplicate
	}

	// 4. Persist
	if err := h.persist(ctx, tx, msg, current, out, positions, now); err != nil {
		return nil, err
	}

	// 5. Commit
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return out, nil
}

func covers(keys []domain.PositionKey, want ...domain.PositionKey) bool {
	for _, w := range want {
		found := false
		for _, k := range keys {
			if k == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (h *PositionHandler) alreadyApplied(ctx context.Context, tx Transaction, ev *domain.Event, current *domain.Transfer) (bool, error) {
	switch ev.Action {
	case domain.ActionPrepare:
		_, err := h.reservationRepo.GetByTransfer(ctx, tx, ev.TransferID)
		if errors.Is(err, domain.ErrReservationNotFound) {
			return false, nil
		}
		return err == nil, err

	case domain.ActionCommit:
		if current == nil {
			return false, nil
		}
		return h.changeLogRepo.Exists(ctx, tx, ev.TransferID, current.PayerID)

	case domain.ActionAbort, domain.ActionTimeout:
		r, err := h.reservationRepo.GetByTransfer(ctx, tx, ev.TransferID)
		if errors.Is(err, domain.ErrReservationNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return r.Status == domain.ReservationReleased, nil
	}

	return false, nil
}

func (h *PositionHandler) persist(
	ctx context.Context,
	tx Transaction,
	msg *Message,
	current *domain.Transfer,
	out *domain.Outcome,
	positions map[domain.PositionKey]*domain.Position,
	now time.Time,
) error {
	if out.Transfer != nil {
		var err error
		if current == nil {
			err = h.transferRepo.Create(ctx, tx, out.Transfer)
		} else {
			err = h.transferRepo.UpdateState(ctx, tx, out.Transfer)
		}
		if err != nil {
			return err
		}
	}

	if out.Instruction != nil {
		if err := h.applyInstruction(ctx, tx, msg, out.Instruction, positions, now); err != nil {
			return err
		}
	}

	for i := range out.Changes {
		change := out.Changes[i]
		change.ID = h.idGen.Generate()
		if err := h.stateChangeRepo.Create(ctx, tx, &change); err != nil {
			return err
		}
	}

	for _, n := range out.Notifications {
		payload, err := json.Marshal(n)
		if err != nil {
			return err
		}

		event := &domain.OutboxEvent{
			ID:        h.idGen.Generate(),
			Topic:     h.notificationTopic,
			Key:       n.TransferID,
			EventType: string(n.Action),
			Payload:   payload,
			CreatedAt: now,
		}
		if err := h.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
	}

	return nil
}

func (h *PositionHandler) applyInstruction(
	ctx context.Context,
	tx Transaction,
	msg *Message,
	ins *domain.PositionInstruction,
	positions map[domain.PositionKey]*domain.Position,
	now time.Time,
) error {
	payer := positions[ins.Payer]
	if payer == nil {
		return fmt.Errorf("%w: %s", domain.ErrPositionNotFound, ins.Payer)
	}

	switch ins.Kind {
	case domain.InstructionReserve:
		payer.Reserved = payer.Reserved.Add(ins.Amount)
		touch(payer, ins.TransferID, msg.Offset, now)
		if err := h.positionRepo.Update(ctx, tx, payer); err != nil {
			return err
		}

		return h.reservationRepo.Create(ctx, tx, &domain.Reservation{
			TransferID: ins.TransferID,
			AccountID:  payer.AccountID,
			Currency:   payer.Currency,
			Amount:     ins.Amount,
			Status:     domain.ReservationActive,
			Offset:     msg.Offset,
			CreatedAt:  now,
			UpdatedAt:  now,
		})

	case domain.InstructionCommit:
		payee := positions[ins.Payee]
		if payee == nil {
			return fmt.Errorf("%w: %s", domain.ErrPositionNotFound, ins.Payee)
		}

		payer.Reserved = payer.Reserved.Sub(ins.Amount)
		if err := h.appendChange(ctx, tx, payer, ins.TransferID, ins.Amount.Neg(), msg.Offset, now); err != nil {
			return err
		}
		if err := h.appendChange(ctx, tx, payee, ins.TransferID, ins.Amount, msg.Offset, now); err != nil {
			return err
		}

		return h.reservationRepo.UpdateStatus(ctx, tx, ins.TransferID, domain.ReservationCommitted, now)

	case domain.InstructionRelease:
		payer.Reserved = payer.Reserved.Sub(ins.Amount)
		touch(payer, ins.TransferID, msg.Offset, now)
		if err := h.positionRepo.Update(ctx, tx, payer); err != nil {
			return err
		}

		return h.reservationRepo.UpdateStatus(ctx, tx, ins.TransferID, domain.ReservationReleased, now)
	}

	return fmt.Errorf("%w: unknown instruction %s", domain.ErrInvalidEvent, ins.Kind)
}

// appendChange moves the balance by delta and records it in the change log.
func (h *PositionHandler) appendChange(
	ctx context.Context,
	tx Transaction,
	p *domain.Position,
	transferID string,
	delta decimal.Decimal,
	offset int64,
	now time.Time,
) error {
	previous := p.Balance
	p.Balance = previous.Add(delta)
	touch(p, transferID, offset, now)

	if err := h.positionRepo.Update(ctx, tx, p); err != nil {
		return err
	}

	return h.changeLogRepo.Create(ctx, tx, &domain.ChangeLogEntry{
		ID:              h.idGen.Generate(),
		TransferID:      transferID,
		AccountID:       p.AccountID,
		Currency:        p.Currency,
		Delta:           delta,
		PreviousBalance: previous,
		ResultBalance:   p.Balance,
		Offset:          offset,
		PositionVersion: p.Version,
		CreatedAt:       now,
	})
}

func touch(p *domain.Position, transferID string, offset int64, now time.Time) {
	p.Version++
	p.LastTransferID = transferID
	p.LastOffset = offset
	p.UpdatedAt = now
}

func (h *PositionHandler) observe(action, result string) {
	if h.metrics == nil {
		return
	}
	h.metrics.EventsProcessed.WithLabelValues(action, result).Inc()
}

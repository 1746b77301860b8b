package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
)

// FulfilHandlerConfig holds the dependencies of a FulfilHandler.
type FulfilHandlerConfig struct {
	TransferRepo      TransferRepository
	Publisher         Publisher
	IDGen             IDGenerator
	Metrics           *metrics.Metrics
	Logger            zerolog.Logger
	Now               func() time.Time
	PositionTopic     string
	NotificationTopic string
}

// FulfilHandler validates payee decisions against RESERVED transfers and
// emits commit or abort events. It never mutates positions.
type FulfilHandler struct {
	transferRepo      TransferRepository
	publisher         Publisher
	idGen             IDGenerator
	metrics           *metrics.Metrics
	logger            zerolog.Logger
	now               func() time.Time
	positionTopic     string
	notificationTopic string
}

// NewFulfilHandler creates a new FulfilHandler.
func NewFulfilHandler(cfg FulfilHandlerConfig) *FulfilHandler {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.PositionTopic == "" {
		cfg.PositionTopic = domain.TopicTransferPosition
	}
	if cfg.NotificationTopic == "" {
		cfg.NotificationTopic = domain.TopicNotificationEvent
	}

	return &FulfilHandler{
		transferRepo:      cfg.TransferRepo,
		publisher:         cfg.Publisher,
		idGen:             cfg.IDGen,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger.With().Str("component", "fulfil-handler").Logger(),
		now:               cfg.Now,
		positionTopic:     cfg.PositionTopic,
		notificationTopic: cfg.NotificationTopic,
	}
}

// Fulfil validates a decision and emits the matching event on the position topic.
func (h *FulfilHandler) Fulfil(ctx context.Context, d *domain.FulfilDecision) (*domain.Event, error) {
	if err := domain.ValidateTransferID(d.TransferID); err != nil {
		return nil, h.reject(err)
	}

	t, err := h.transferRepo.GetByID(ctx, d.TransferID)
	if err != nil {
		return nil, err
	}

	if t.State != domain.TransferStateReserved {
		return nil, fmt.Errorf("%w: transfer is %s", domain.ErrTransferNotReserved, t.State)
	}

	ev := &domain.Event{
		ID:         h.idGen.Generate(),
		TransferID: t.ID,
		CreatedAt:  h.now(),
	}

	switch d.State {
	case domain.TransferStateCommitted:
		if t.IsExpired(ev.CreatedAt) {
			return nil, h.reject(fmt.Errorf("%w: %s", domain.ErrTransferExpired, t.ExpiresAt.Format(time.RFC3339)))
		}
		ev.Action = domain.ActionCommit
	case domain.TransferStateAborted:
		ev.Action = domain.ActionAbort
		ev.Reason = domain.ReasonRejected
	default:
		return nil, h.reject(fmt.Errorf("%w: %q", domain.ErrInvalidDecision, d.State))
	}

	if err := emit(ctx, h.publisher, h.positionTopic, t.PayerKey().String(), ev); err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("transfer_id", t.ID).
		Str("action", string(ev.Action)).
		Msg("fulfil decision emitted")

	return ev, nil
}

// Handle is the transfer-fulfil topic consumer. Decisions that cannot apply are
// acknowledged and reported to the payee as error notifications.
func (h *FulfilHandler) Handle(ctx context.Context, msg *Message) error {
	var d domain.FulfilDecision
	if err := json.Unmarshal(msg.Value, &d); err != nil {
		h.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("dropping malformed fulfil decision")
		return nil
	}

	_, err := h.Fulfil(ctx, &d)
	if err == nil {
		return nil
	}

	var current *domain.Transfer
	if t, lookupErr := h.transferRepo.GetByID(ctx, d.TransferID); lookupErr == nil {
		current = t
	}

	code := domain.ErrorCodeValidation
	switch {
	case errors.Is(err, domain.ErrTransferNotFound):
		code = domain.ErrorCodeNotFound
	case errors.Is(err, domain.ErrTransferNotReserved):
		code = stateErrorCode(current)
	case domain.IsValidationError(err):
	default:
		return err
	}

	to := domain.SwitchID
	if current != nil {
		to = current.PayeeID
	}

	h.logger.Info().Err(err).Str("transfer_id", d.TransferID).Msg("fulfil decision rejected")

	return notifyError(ctx, h.publisher, h.notificationTopic, d.TransferID, to, code, err, h.now())
}

func stateErrorCode(t *domain.Transfer) string {
	if t == nil {
		return domain.ErrorCodeValidation
	}
	switch t.State {
	case domain.TransferStateCommitted:
		return domain.ErrorCodeAlreadyCommitted
	case domain.TransferStateAborted:
		return domain.ErrorCodeAlreadyAborted
	}
	return domain.ErrorCodeValidation
}

func (h *FulfilHandler) reject(err error) error {
	if h.metrics != nil {
		h.metrics.RequestsRejected.WithLabelValues("fulfil").Inc()
	}
	return err
}

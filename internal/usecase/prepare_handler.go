package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
)

// PrepareHandlerConfig holds the dependencies of a PrepareHandler.
type PrepareHandlerConfig struct {
	PositionRepo      PositionRepository
	ProxyCache        ProxyCache
	Publisher         Publisher
	IDGen             IDGenerator
	Metrics           *metrics.Metrics
	Logger            zerolog.Logger
	Now               func() time.Time
	PositionTopic     string
	NotificationTopic string
}

// PrepareHandler validates transfer requests and emits prepare events.
// It never mutates positions.
type PrepareHandler struct {
	positionRepo      PositionRepository
	proxyCache        ProxyCache
	publisher         Publisher
	idGen             IDGenerator
	metrics           *metrics.Metrics
	logger            zerolog.Logger
	now               func() time.Time
	positionTopic     string
	notificationTopic string
}

// NewPrepareHandler creates a new PrepareHandler.
func NewPrepareHandler(cfg PrepareHandlerConfig) *PrepareHandler {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.PositionTopic == "" {
		cfg.PositionTopic = domain.TopicTransferPosition
	}
	if cfg.NotificationTopic == "" {
		cfg.NotificationTopic = domain.TopicNotificationEvent
	}

	return &PrepareHandler{
		positionRepo:      cfg.PositionRepo,
		proxyCache:        cfg.ProxyCache,
		publisher:         cfg.Publisher,
		idGen:             cfg.IDGen,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger.With().Str("component", "prepare-handler").Logger(),
		now:               cfg.Now,
		positionTopic:     cfg.PositionTopic,
		notificationTopic: cfg.NotificationTopic,
	}
}

// Prepare validates a transfer request and emits its prepare event on the position topic.
func (h *PrepareHandler) Prepare(ctx context.Context, req *domain.TransferPayload) (*domain.Event, error) {
	now := h.now()

	t, err := req.ToTransfer()
	if err != nil {
		return nil, h.reject(err)
	}
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))

	if err := domain.ValidateTransfer(t, now); err != nil {
		return nil, h.reject(err)
	}

	if _, err := h.positionRepo.GetByKey(ctx, t.PayerKey()); err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			return nil, h.reject(fmt.Errorf("%w: payer %s", domain.ErrParticipantNotFound, t.PayerKey()))
		}
		return nil, err
	}

	payee, err := h.resolvePayee(ctx, t)
	if err != nil {
		return nil, err
	}
	t.PayeeID = payee

	ev := &domain.Event{
		ID:         h.idGen.Generate(),
		TransferID: t.ID,
		Action:     domain.ActionPrepare,
		Transfer:   domain.TransferToPayload(t),
		CreatedAt:  now,
	}

	if err := emit(ctx, h.publisher, h.positionTopic, t.PayerKey().String(), ev); err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("transfer_id", t.ID).
		Str("payer", t.PayerID).
		Str("payee", t.PayeeID).
		Str("amount", t.Amount.String()).
		Str("currency", t.Currency).
		Msg("prepare emitted")

	return ev, nil
}

// resolvePayee returns the participant whose position the transfer credits,
// falling back to a cached proxy route when the payee is not local.
func (h *PrepareHandler) resolvePayee(ctx context.Context, t *domain.Transfer) (string, error) {
	_, err := h.positionRepo.GetByKey(ctx, t.PayeeKey())
	if err == nil {
		return t.PayeeID, nil
	}
	if !errors.Is(err, domain.ErrPositionNotFound) {
		return "", err
	}

	if h.proxyCache != nil {
		proxy, ok, err := h.proxyCache.Get(ctx, ProxyKey(t.PayeeID))
		if err != nil {
			return "", fmt.Errorf("proxy lookup: %w", err)
		}
		if ok && proxy != t.PayerID {
			key := domain.PositionKey{AccountID: proxy, Currency: t.Currency}
			if _, err := h.positionRepo.GetByKey(ctx, key); err == nil {
				if h.metrics != nil {
					h.metrics.ProxyRoutesResolved.Inc()
				}
				h.logger.Debug().Str("payee", t.PayeeID).Str("proxy", proxy).Msg("payee routed through proxy")
				return proxy, nil
			}
		}
	}

	return "", h.reject(fmt.Errorf("%w: payee %s", domain.ErrParticipantNotFound, t.PayeeKey()))
}

// Handle is the transfer-prepare topic consumer. Rejected requests are
// acknowledged and reported to the payer as error notifications.
func (h *PrepareHandler) Handle(ctx context.Context, msg *Message) error {
	var req domain.TransferPayload
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("dropping malformed prepare request")
		return nil
	}

	_, err := h.Prepare(ctx, &req)
	if err == nil {
		return nil
	}
	if !domain.IsValidationError(err) {
		return err
	}

	h.logger.Info().Err(err).Str("transfer_id", req.TransferID).Msg("prepare request rejected")
	return notifyError(ctx, h.publisher, h.notificationTopic, req.TransferID, req.PayerID, domain.ErrorCodeValidation, err, h.now())
}

func (h *PrepareHandler) reject(err error) error {
	if h.metrics != nil {
		h.metrics.RequestsRejected.WithLabelValues("prepare").Inc()
	}
	return err
}

// emit publishes an event on the position topic.
func emit(ctx context.Context, pub Publisher, topic, key string, ev *domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := pub.Publish(ctx, topic, key, data); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Action, err)
	}
	return nil
}

// notifyError reports a rejected request straight to the notification topic.
func notifyError(ctx context.Context, pub Publisher, topic, transferID, to, code string, cause error, now time.Time) error {
	n := domain.Notification{
		CreatedAt:        now,
		TransferID:       transferID,
		To:               to,
		From:             domain.SwitchID,
		Action:           domain.ActionError,
		ErrorCode:        code,
		ErrorDescription: cause.Error(),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return pub.Publish(ctx, topic, transferID, data)
}

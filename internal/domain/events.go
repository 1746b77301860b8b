package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default topic names.
const (
	TopicTransferPrepare   = "topic-transfer-prepare"
	TopicTransferPosition  = "topic-transfer-position"
	TopicTransferFulfil    = "topic-transfer-fulfil"
	TopicNotificationEvent = "topic-notification-event"
)

// Action is the kind of event carried on the position and notification topics.
type Action string

const (
	ActionPrepare Action = "prepare"
	ActionCommit  Action = "commit"
	ActionAbort   Action = "abort"
	ActionTimeout Action = "timeout-reserved"
	ActionError   Action = "error"
)

// TransferPayload is the wire form of transfer terms.
type TransferPayload struct {
	ExpiresAt  time.Time `json:"expiration"`
	TransferID string    `json:"transferId"`
	PayerID    string    `json:"payerFsp"`
	PayeeID    string    `json:"payeeFsp"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
}

// ToTransfer converts the payload to a RECEIVED transfer.
func (p *TransferPayload) ToTransfer() (*Transfer, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, p.Amount)
	}

	return &Transfer{
		ID:        p.TransferID,
		PayerID:   p.PayerID,
		PayeeID:   p.PayeeID,
		Amount:    amount,
		Currency:  p.Currency,
		ExpiresAt: p.ExpiresAt.UTC(),
		State:     TransferStateReceived,
	}, nil
}

// validateTerms checks the parts of the terms the store enforces with
// constraints. Expiry is not checked: a prepare may be replayed after it.
func (p *TransferPayload) validateTerms() error {
	t, err := p.ToTransfer()
	if err != nil {
		return err
	}
	if t.PayerID == "" || t.PayeeID == "" || t.Currency == "" {
		return errors.New("payer, payee and currency are required")
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	return t.Validate()
}

// SameTerms reports whether p describes the same transfer as t.
func (p *TransferPayload) SameTerms(t *Transfer) bool {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return false
	}
	return p.PayerID == t.PayerID &&
		p.PayeeID == t.PayeeID &&
		strings.EqualFold(p.Currency, t.Currency) &&
		amount.Equal(t.Amount)
}

// TransferToPayload converts a transfer to its wire form.
func TransferToPayload(t *Transfer) *TransferPayload {
	return &TransferPayload{
		TransferID: t.ID,
		PayerID:    t.PayerID,
		PayeeID:    t.PayeeID,
		Amount:     t.Amount.String(),
		Currency:   t.Currency,
		ExpiresAt:  t.ExpiresAt,
	}
}

// FulfilDecision is the payee decision received on the fulfil topic.
type FulfilDecision struct {
	TransferID string        `json:"transferId"`
	State      TransferState `json:"transferState"`
	Reason     string        `json:"reason,omitempty"`
}

// Event is a message on the position topic.
type Event struct {
	CreatedAt  time.Time        `json:"createdAt"`
	Transfer   *TransferPayload `json:"transfer,omitempty"`
	ID         string           `json:"id"`
	TransferID string           `json:"transferId"`
	Action     Action           `json:"action"`
	Reason     Reason           `json:"reason,omitempty"`
}

// Validate checks the event is well formed for its action.
func (e *Event) Validate() error {
	if e.TransferID == "" {
		return fmt.Errorf("%w: missing transfer id", ErrInvalidEvent)
	}

	switch e.Action {
	case ActionPrepare:
		if e.Transfer == nil {
			return fmt.Errorf("%w: prepare without transfer terms", ErrInvalidEvent)
		}
		if e.Transfer.TransferID != e.TransferID {
			return fmt.Errorf("%w: transfer id mismatch", ErrInvalidEvent)
		}
		if err := e.Transfer.validateTerms(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	case ActionCommit, ActionAbort, ActionTimeout:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, e.Action)
	}

	return nil
}

// DecodeEvent parses a position topic message.
func DecodeEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Notification is delivered to participants on the notification topic.
type Notification struct {
	CreatedAt        time.Time     `json:"createdAt"`
	TransferID       string        `json:"transferId"`
	To               string        `json:"to"`
	From             string        `json:"from"`
	Action           Action        `json:"action"`
	State            TransferState `json:"transferState,omitempty"`
	Reason           Reason        `json:"reason,omitempty"`
	Amount           string        `json:"amount,omitempty"`
	Currency         string        `json:"currency,omitempty"`
	ErrorCode        string        `json:"errorCode,omitempty"`
	ErrorDescription string        `json:"errorDescription,omitempty"`
}

// Notification error codes
const (
	ErrorCodeValidation       = "VALIDATION_ERROR"
	ErrorCodeNotFound         = "TRANSFER_NOT_FOUND"
	ErrorCodeAlreadyCommitted = "TRANSFER_ALREADY_COMMITTED"
	ErrorCodeAlreadyAborted   = "TRANSFER_ALREADY_ABORTED"
)

// SwitchID is the sender of notifications produced by the switch itself.
const SwitchID = "switch"

// OutboxEvent represents an event to be published after the store transaction commits.
type OutboxEvent struct {
	CreatedAt   time.Time
	PublishedAt *time.Time
	ID          string
	Topic       string
	Key         string
	EventType   string
	Payload     []byte
	Published   bool
}

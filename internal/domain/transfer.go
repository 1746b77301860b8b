package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferState is the lifecycle state of a transfer.
type TransferState string

const (
	TransferStateReceived  TransferState = "RECEIVED"
	TransferStateReserved  TransferState = "RESERVED"
	TransferStateCommitted TransferState = "COMMITTED"
	TransferStateAborted   TransferState = "ABORTED"
	TransferStateExpired   TransferState = "EXPIRED"
)

// IsTerminal reports whether no further transition may leave the state.
func (s TransferState) IsTerminal() bool {
	return s == TransferStateCommitted || s == TransferStateAborted
}

// Reason explains why a transfer was aborted.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS"
	ReasonPayerNotFound     Reason = "PAYER_NOT_FOUND"
	ReasonPayeeNotFound     Reason = "PAYEE_NOT_FOUND"
	ReasonRejected          Reason = "REJECTED"
	ReasonExpired           Reason = "EXPIRED"
	ReasonAborted           Reason = "ABORTED"
)

// Transfer represents a money movement from a payer to a payee account.
type Transfer struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	ID        string
	PayerID   string
	PayeeID   string
	Currency  string
	Amount    decimal.Decimal
	State     TransferState
	Reason    Reason
}

// Validate validates the transfer terms.
func (t *Transfer) Validate() error {
	if t.PayerID == t.PayeeID {
		return ErrSameAccount
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}

// IsExpired reports whether the transfer expiry has elapsed at now.
func (t *Transfer) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// PayerKey returns the position key debited by the transfer.
func (t *Transfer) PayerKey() PositionKey {
	return PositionKey{AccountID: t.PayerID, Currency: t.Currency}
}

// PayeeKey returns the position key credited by the transfer.
func (t *Transfer) PayeeKey() PositionKey {
	return PositionKey{AccountID: t.PayeeID, Currency: t.Currency}
}

// StateChange is one row of the append-only transfer state history.
type StateChange struct {
	CreatedAt  time.Time
	ID         string
	TransferID string
	State      TransferState
	Reason     Reason
}

package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PositionKey identifies a position: one per participant account and currency.
type PositionKey struct {
	AccountID string
	Currency  string
}

func (k PositionKey) String() string {
	return k.AccountID + "/" + k.Currency
}

// SortKeys orders keys so that row locks are always taken in the same order.
func SortKeys(keys []PositionKey) []PositionKey {
	sorted := append([]PositionKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AccountID != sorted[j].AccountID {
			return sorted[i].AccountID < sorted[j].AccountID
		}
		return sorted[i].Currency < sorted[j].Currency
	})
	return sorted
}

// Position is the running balance of an account in one currency.
type Position struct {
	UpdatedAt      time.Time
	CreatedAt      time.Time
	AccountID      string
	Currency       string
	LastTransferID string
	Balance        decimal.Decimal
	Reserved       decimal.Decimal
	LastOffset     int64
	Version        int64
}

// Key returns the position key.
func (p *Position) Key() PositionKey {
	return PositionKey{AccountID: p.AccountID, Currency: p.Currency}
}

// Available returns balance minus the amount reserved by in-flight transfers.
func (p *Position) Available() decimal.Decimal {
	return p.Balance.Sub(p.Reserved)
}

// CanReserve checks if amount fits in the available balance.
func (p *Position) CanReserve(amount decimal.Decimal) bool {
	return p.Available().GreaterThanOrEqual(amount)
}

// ChangeLogEntry is the append-only witness of a balance change applied to an account.
type ChangeLogEntry struct {
	CreatedAt       time.Time
	ID              string
	TransferID      string
	AccountID       string
	Currency        string
	Delta           decimal.Decimal
	PreviousBalance decimal.Decimal
	ResultBalance   decimal.Decimal
	Offset          int64
	PositionVersion int64
}

// OpeningTransferID is the change-log transfer id used for an opening balance.
func OpeningTransferID(key PositionKey) string {
	return "opening:" + key.String()
}

// ReservationStatus is the lifecycle of the funds earmarked for a transfer.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCommitted ReservationStatus = "COMMITTED"
	ReservationReleased  ReservationStatus = "RELEASED"
)

// Reservation earmarks payer funds for a RESERVED transfer.
type Reservation struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	TransferID string
	AccountID  string
	Currency   string
	Amount     decimal.Decimal
	Status     ReservationStatus
	Offset     int64
}

// Replay recomputes balance and reserved amount from the ledger history.
func Replay(entries []*ChangeLogEntry, reservations []*Reservation) (balance, reserved decimal.Decimal) {
	balance, reserved = decimal.Zero, decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Delta)
	}
	for _, r := range reservations {
		if r.Status == ReservationActive {
			reserved = reserved.Add(r.Amount)
		}
	}
	return balance, reserved
}

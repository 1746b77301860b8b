package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/usecase"
)

// EventAcceptedResponse acknowledges an event queued on the position topic.
type EventAcceptedResponse struct {
	EventID    string        `json:"event_id"`
	TransferID string        `json:"transfer_id"`
	Action     domain.Action `json:"action"`
	Reason     domain.Reason `json:"reason,omitempty"`
}

// EventAcceptedFromDomain converts a position event to response.
func EventAcceptedFromDomain(e *domain.Event) *EventAcceptedResponse {
	return &EventAcceptedResponse{
		EventID:    e.ID,
		TransferID: e.TransferID,
		Action:     e.Action,
		Reason:     e.Reason,
	}
}

// TransferResponse represents a transfer in API responses.
type TransferResponse struct {
	ID        string               `json:"id"`
	PayerID   string               `json:"payer_id"`
	PayeeID   string               `json:"payee_id"`
	Amount    decimal.Decimal      `json:"amount"`
	Currency  string               `json:"currency"`
	State     domain.TransferState `json:"state"`
	Reason    domain.Reason        `json:"reason,omitempty"`
	ExpiresAt time.Time            `json:"expires_at"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// TransferFromDomain converts domain transfer to response.
func TransferFromDomain(t *domain.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:        t.ID,
		PayerID:   t.PayerID,
		PayeeID:   t.PayeeID,
		Amount:    t.Amount,
		Currency:  t.Currency,
		State:     t.State,
		Reason:    t.Reason,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// StateChangeResponse represents one transfer state transition.
type StateChangeResponse struct {
	State     domain.TransferState `json:"state"`
	Reason    domain.Reason        `json:"reason,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// StateChangesFromDomain converts domain state changes to responses.
func StateChangesFromDomain(changes []*domain.StateChange) []*StateChangeResponse {
	result := make([]*StateChangeResponse, len(changes))
	for i, c := range changes {
		result[i] = &StateChangeResponse{State: c.State, Reason: c.Reason, CreatedAt: c.CreatedAt}
	}
	return result
}

// PositionResponse represents a position in API responses.
type PositionResponse struct {
	AccountID      string          `json:"account_id"`
	Currency       string          `json:"currency"`
	Balance        decimal.Decimal `json:"balance"`
	Reserved       decimal.Decimal `json:"reserved"`
	Available      decimal.Decimal `json:"available"`
	LastTransferID string          `json:"last_transfer_id,omitempty"`
	LastOffset     int64           `json:"last_offset"`
	Version        int64           `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PositionFromDomain converts domain position to response.
func PositionFromDomain(p *domain.Position) *PositionResponse {
	return &PositionResponse{
		AccountID:      p.AccountID,
		Currency:       p.Currency,
		Balance:        p.Balance,
		Reserved:       p.Reserved,
		Available:      p.Balance.Sub(p.Reserved),
		LastTransferID: p.LastTransferID,
		LastOffset:     p.LastOffset,
		Version:        p.Version,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ChangeLogEntryResponse represents a change-log entry in API responses.
type ChangeLogEntryResponse struct {
	ID              string          `json:"id"`
	TransferID      string          `json:"transfer_id"`
	Delta           decimal.Decimal `json:"delta"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	ResultBalance   decimal.Decimal `json:"result_balance"`
	Offset          int64           `json:"offset"`
	PositionVersion int64           `json:"position_version"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ChangeLogFromDomain converts domain change-log entries to responses.
func ChangeLogFromDomain(entries []*domain.ChangeLogEntry) []*ChangeLogEntryResponse {
	result := make([]*ChangeLogEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = &ChangeLogEntryResponse{
			ID:              e.ID,
			TransferID:      e.TransferID,
			Delta:           e.Delta,
			PreviousBalance: e.PreviousBalance,
			ResultBalance:   e.ResultBalance,
			Offset:          e.Offset,
			PositionVersion: e.PositionVersion,
			CreatedAt:       e.CreatedAt,
		}
	}
	return result
}

// ReconciliationResponse reports a change-log replay against the stored position.
type ReconciliationResponse struct {
	AccountID          string          `json:"account_id"`
	Currency           string          `json:"currency"`
	RecordedBalance    decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance  decimal.Decimal `json:"calculated_balance"`
	RecordedReserved   decimal.Decimal `json:"recorded_reserved"`
	CalculatedReserved decimal.Decimal `json:"calculated_reserved"`
	Difference         decimal.Decimal `json:"difference"`
	Entries            int             `json:"entries"`
	IsReconciled       bool            `json:"is_reconciled"`
	LastChecked        time.Time       `json:"last_checked"`
}

// ReconciliationFromResult converts a reconciliation result to response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:          r.AccountID,
		Currency:           r.Currency,
		RecordedBalance:    r.RecordedBalance,
		CalculatedBalance:  r.CalculatedBalance,
		RecordedReserved:   r.RecordedReserved,
		CalculatedReserved: r.CalculatedReserved,
		Difference:         r.Difference,
		Entries:            r.Entries,
		IsReconciled:       r.IsReconciled,
		LastChecked:        r.LastChecked,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/usecase"
)

// PrepareTransferRequest is the body of POST /transfers. It uses the same
// field names as the prepare topic payload.
type PrepareTransferRequest struct {
	TransferID string    `json:"transferId"`
	PayerFsp   string    `json:"payerFsp"`
	PayeeFsp   string    `json:"payeeFsp"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Expiration time.Time `json:"expiration"`
}

// ToPayload converts the request to a transfer payload.
func (r *PrepareTransferRequest) ToPayload() *domain.TransferPayload {
	return &domain.TransferPayload{
		TransferID: r.TransferID,
		PayerID:    r.PayerFsp,
		PayeeID:    r.PayeeFsp,
		Amount:     r.Amount,
		Currency:   r.Currency,
		ExpiresAt:  r.Expiration,
	}
}

// FulfilTransferRequest is the body of PUT /transfers/{id}.
type FulfilTransferRequest struct {
	TransferState domain.TransferState `json:"transferState"`
	Reason        string               `json:"reason,omitempty"`
}

// ToDecision converts the request to a fulfil decision for transferID.
func (r *FulfilTransferRequest) ToDecision(transferID string) *domain.FulfilDecision {
	return &domain.FulfilDecision{
		TransferID: transferID,
		State:      r.TransferState,
		Reason:     r.Reason,
	}
}

// OpenPositionRequest is the body of POST /positions.
type OpenPositionRequest struct {
	AccountID      string `json:"account_id"`
	Currency       string `json:"currency"`
	OpeningBalance string `json:"opening_balance,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *OpenPositionRequest) ToUseCaseInput() (usecase.OpenPositionInput, error) {
	balance := decimal.Zero
	if r.OpeningBalance != "" {
		var err error
		balance, err = decimal.NewFromString(r.OpeningBalance)
		if err != nil {
			return usecase.OpenPositionInput{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, r.OpeningBalance)
		}
	}

	return usecase.OpenPositionInput{
		AccountID:      r.AccountID,
		Currency:       r.Currency,
		OpeningBalance: balance,
	}, nil
}

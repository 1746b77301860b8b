package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/centralledger/internal/adapter/http/dto"
	"github.com/iho/centralledger/internal/domain"
)

// Preparer validates transfer requests and emits prepare events.
type Preparer interface {
	Prepare(ctx context.Context, req *domain.TransferPayload) (*domain.Event, error)
}

// Fulfiller validates payee decisions and emits commit or abort events.
type Fulfiller interface {
	Fulfil(ctx context.Context, d *domain.FulfilDecision) (*domain.Event, error)
}

// TransferReader reads transfers and their history.
type TransferReader interface {
	GetTransfer(ctx context.Context, id string) (*domain.Transfer, error)
	GetStateHistory(ctx context.Context, id string) ([]*domain.StateChange, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	preparer  Preparer
	fulfiller Fulfiller
	reader    TransferReader
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(preparer Preparer, fulfiller Fulfiller, reader TransferReader) *TransferHandler {
	return &TransferHandler{preparer: preparer, fulfiller: fulfiller, reader: reader}
}

// Prepare validates a transfer request and queues its prepare event.
func (h *TransferHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	var req dto.PrepareTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ev, err := h.preparer.Prepare(r.Context(), req.ToPayload())
	if err != nil {
		writeDomainError(w, "failed to prepare transfer", err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.EventAcceptedFromDomain(ev))
}

// Fulfil validates a payee decision and queues its commit or abort event.
func (h *TransferHandler) Fulfil(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transfer ID", "")
		return
	}

	var req dto.FulfilTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ev, err := h.fulfiller.Fulfil(r.Context(), req.ToDecision(id))
	if err != nil {
		writeDomainError(w, "failed to fulfil transfer", err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.EventAcceptedFromDomain(ev))
}

// Get retrieves a transfer by ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transfer ID", "")
		return
	}

	transfer, err := h.reader.GetTransfer(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(transfer))
}

// History lists the state transitions of a transfer.
func (h *TransferHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	changes, err := h.reader.GetStateHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get transfer history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StateChangesFromDomain(changes))
}

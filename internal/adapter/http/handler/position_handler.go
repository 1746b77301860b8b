package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/centralledger/internal/adapter/http/dto"
	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/usecase"
)

// PositionService is the subset of position operations served over HTTP.
type PositionService interface {
	OpenPosition(ctx context.Context, input usecase.OpenPositionInput) (*domain.Position, error)
	GetPosition(ctx context.Context, key domain.PositionKey) (*domain.Position, error)
	ListChanges(ctx context.Context, key domain.PositionKey) ([]*domain.ChangeLogEntry, error)
}

// Reconciler replays a position's ledger history.
type Reconciler interface {
	Reconcile(ctx context.Context, key domain.PositionKey) (*usecase.ReconciliationResult, error)
}

// PositionHandler handles position-related HTTP requests.
type PositionHandler struct {
	positions  PositionService
	reconciler Reconciler
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(positions PositionService, reconciler Reconciler) *PositionHandler {
	return &PositionHandler{positions: positions, reconciler: reconciler}
}

// Open creates a position with an optional opening balance.
func (h *PositionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid opening balance", err.Error())
		return
	}

	position, err := h.positions.OpenPosition(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to open position", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PositionFromDomain(position))
}

// Get retrieves a position.
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	position, err := h.positions.GetPosition(r.Context(), positionKey(r))
	if err != nil {
		writeDomainError(w, "failed to get position", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PositionFromDomain(position))
}

// Changes lists the change log of a position.
func (h *PositionHandler) Changes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.positions.ListChanges(r.Context(), positionKey(r))
	if err != nil {
		writeDomainError(w, "failed to list position changes", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ChangeLogFromDomain(entries))
}

// Reconcile replays the change log and compares it with the stored position.
func (h *PositionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.Reconcile(r.Context(), positionKey(r))
	if err != nil {
		writeDomainError(w, "failed to reconcile position", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}

func positionKey(r *http.Request) domain.PositionKey {
	return domain.PositionKey{
		AccountID: chi.URLParam(r, "account"),
		Currency:  chi.URLParam(r, "currency"),
	}
}

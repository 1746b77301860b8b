package handler

import (
	"context"
	"net/http"

	"github.com/iho/centralledger/internal/health"
)

// HealthChecker produces the composite health report.
type HealthChecker interface {
	Check(ctx context.Context) *health.Report
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health reports the status of every sub-service. The body is the same either
// way; only the status code differs.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusBadGateway
	}

	writeJSON(w, status, report)
}

// Liveness returns 200 if the process is serving requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

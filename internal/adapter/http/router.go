package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/centralledger/internal/adapter/http/handler"
	"github.com/iho/centralledger/internal/adapter/http/middleware"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	HealthHandler   *handler.HealthHandler
	TransferHandler *handler.TransferHandler
	PositionHandler *handler.PositionHandler
	Metrics         *metrics.Metrics
	// MetricsHandler serves /metrics; defaults to the default Prometheus registry.
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewAccessLog(cfg.Logger, "/health", "/live", "/metrics").Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetrics(cfg.Metrics).Wrap)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Health)
	r.Get("/live", cfg.HealthHandler.Liveness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TransferHandler != nil {
			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", cfg.TransferHandler.Prepare)
				r.Get("/{id}", cfg.TransferHandler.Get)
				r.Put("/{id}", cfg.TransferHandler.Fulfil)
				r.Get("/{id}/history", cfg.TransferHandler.History)
			})
		}

		if cfg.PositionHandler != nil {
			r.Route("/positions", func(r chi.Router) {
				r.Post("/", cfg.PositionHandler.Open)
				r.Get("/{account}/{currency}", cfg.PositionHandler.Get)
				r.Get("/{account}/{currency}/changes", cfg.PositionHandler.Changes)
				r.Get("/{account}/{currency}/reconcile", cfg.PositionHandler.Reconcile)
			})
		}
	})

	return r
}

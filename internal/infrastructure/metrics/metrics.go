package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Position handler metrics
	EventsProcessed     *prometheus.CounterVec
	EventDuplicates     *prometheus.CounterVec
	TransfersAborted    *prometheus.CounterVec
	PositionTxDuration  prometheus.Histogram
	PositionTxRetries   prometheus.Counter
	TransfersSwept      prometheus.Counter
	RequestsRejected    *prometheus.CounterVec
	ProxyRoutesResolved prometheus.Counter

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter

	// Health metrics
	ServiceUp *prometheus.GaugeVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all Prometheus metrics and registers them on reg
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		EventsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "centralledger_events_processed_total",
				Help: "Total position events processed by action and result",
			},
			[]string{"action", "result"},
		),
		EventDuplicates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "centralledger_event_duplicates_total",
				Help: "Total redelivered events skipped by the idempotency check",
			},
			[]string{"action"},
		),
		TransfersAborted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "centralledger_transfers_aborted_total",
				Help: "Total transfers aborted by reason",
			},
			[]string{"reason"},
		),
		PositionTxDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "centralledger_position_tx_duration_seconds",
			Help:    "Duration of position store transactions",
			Buckets: prometheus.DefBuckets,
		}),
		PositionTxRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "centralledger_position_tx_retries_total",
			Help: "Total position transactions retried after a transient failure",
		}),
		TransfersSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "centralledger_transfers_swept_total",
			Help: "Total expired reservations emitted as timeout events",
		}),
		RequestsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "centralledger_requests_rejected_total",
				Help: "Total prepare and fulfil requests rejected by validation",
			},
			[]string{"handler"},
		),
		ProxyRoutesResolved: f.NewCounter(prometheus.CounterOpts{
			Name: "centralledger_proxy_routes_resolved_total",
			Help: "Total payees routed through a proxy participant",
		}),

		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "centralledger_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "centralledger_outbox_failed_total",
			Help: "Total outbox events that failed to publish",
		}),

		ServiceUp: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "centralledger_service_up",
				Help: "Sub-service health, 1 when OK",
			},
			[]string{"service"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "centralledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "centralledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

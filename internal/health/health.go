// Package health aggregates the liveness of the ledger's collaborators.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/iho/centralledger/internal/infrastructure/metrics"
)

//go:generate mockgen -source=health.go -destination=mocks/mock_health.go -package=mocks

// Status is the binary state of a service.
type Status string

const (
	StatusOK   Status = "OK"
	StatusDown Status = "DOWN"
)

// Sub-service names reported in the health body.
const (
	ServiceDatastore  = "datastore"
	ServiceBroker     = "broker"
	ServiceProxyCache = "proxyCache"
)

// Prober reports whether a collaborator is reachable.
type Prober interface {
	HealthCheck(ctx context.Context) (bool, error)
}

// LockReader reads the schema migration flag.
type LockReader interface {
	IsLocked(ctx context.Context) (bool, error)
}

// ServiceStatus is the status of one sub-service.
type ServiceStatus struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Report is the composite health body.
type Report struct {
	Status        Status          `json:"status"`
	Uptime        float64         `json:"uptime"`
	StartTime     time.Time       `json:"startTime"`
	VersionNumber string          `json:"versionNumber"`
	Services      []ServiceStatus `json:"services"`
}

// OK reports whether every sub-service is up.
func (r *Report) OK() bool {
	return r.Status == StatusOK
}

// Config for Aggregator.
type Config struct {
	Broker     Prober
	Datastore  LockReader
	ProxyCache Prober
	Version    string
	StartTime  time.Time
	Timeout    time.Duration
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Aggregator runs the sub-probes and folds them into one report.
type Aggregator struct {
	broker     Prober
	datastore  LockReader
	proxyCache Prober
	version    string
	startTime  time.Time
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAggregator creates a new Aggregator.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = cfg.Now()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Aggregator{
		broker:     cfg.Broker,
		datastore:  cfg.Datastore,
		proxyCache: cfg.ProxyCache,
		version:    cfg.Version,
		startTime:  cfg.StartTime,
		timeout:    cfg.Timeout,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "health").Logger(),
		now:        cfg.Now,
	}
}

// Check probes every sub-service concurrently. It never fails; a probe that
// errors or panics is reported as DOWN.
func (a *Aggregator) Check(ctx context.Context) *Report {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	services := []ServiceStatus{
		{Name: ServiceDatastore},
		{Name: ServiceBroker},
		{Name: ServiceProxyCache},
	}
	probes := []func(context.Context) (bool, error){
		a.checkDatastore,
		probeFunc(a.broker),
		probeFunc(a.proxyCache),
	}

	var wg conc.WaitGroup
	for i := range services {
		wg.Go(func() {
			services[i].Status = a.run(ctx, services[i].Name, probes[i])
		})
	}
	wg.Wait()

	report := &Report{
		Status:        StatusOK,
		Uptime:        a.now().Sub(a.startTime).Seconds(),
		StartTime:     a.startTime,
		VersionNumber: a.version,
		Services:      services,
	}
	for _, s := range services {
		if s.Status != StatusOK {
			report.Status = StatusDown
		}
		if a.metrics != nil {
			up := 0.0
			if s.Status == StatusOK {
				up = 1
			}
			a.metrics.ServiceUp.WithLabelValues(s.Name).Set(up)
		}
	}

	return report
}

func (a *Aggregator) run(ctx context.Context, name string, probe func(context.Context) (bool, error)) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Str("service", name).Interface("panic", r).Msg("health probe panicked")
			status = StatusDown
		}
	}()

	ok, err := probe(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Str("service", name).Msg("health probe failed")
		return StatusDown
	}
	if !ok {
		return StatusDown
	}
	return StatusOK
}

func (a *Aggregator) checkDatastore(ctx context.Context) (bool, error) {
	if a.datastore == nil {
		return false, fmt.Errorf("datastore probe not configured")
	}
	locked, err := a.datastore.IsLocked(ctx)
	if err != nil {
		return false, err
	}
	return !locked, nil
}

func probeFunc(p Prober) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		if p == nil {
			return false, fmt.Errorf("probe not configured")
		}
		return p.HealthCheck(ctx)
	}
}

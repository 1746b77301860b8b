package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/centralledger/internal/health"
	"github.com/iho/centralledger/internal/health/mocks"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
)

var started = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type probeResult struct {
	ok    bool
	err   error
	panic bool
}

func TestAggregator_Check(t *testing.T) {
	up := probeResult{ok: true}
	down := probeResult{ok: false}
	failing := probeResult{err: errors.New("boom")}

	tests := []struct {
		name       string
		locked     probeResult
		broker     probeResult
		cache      probeResult
		wantStatus health.Status
		wantDown   []string
	}{
		{"all up", down, up, up, health.StatusOK, nil},
		{"migration lock engaged", probeResult{ok: true}, up, up, health.StatusDown, []string{health.ServiceDatastore}},
		{"migration lock query fails", failing, up, up, health.StatusDown, []string{health.ServiceDatastore}},
		{"broker topic down", down, down, up, health.StatusDown, []string{health.ServiceBroker}},
		{"broker throws", down, failing, up, health.StatusDown, []string{health.ServiceBroker}},
		{"proxy cache false", down, up, down, health.StatusDown, []string{health.ServiceProxyCache}},
		{"proxy cache throws", down, up, failing, health.StatusDown, []string{health.ServiceProxyCache}},
		{"proxy cache panics", down, up, probeResult{panic: true}, health.StatusDown, []string{health.ServiceProxyCache}},
		{"everything down", failing, failing, failing, health.StatusDown, []string{health.ServiceDatastore, health.ServiceBroker, health.ServiceProxyCache}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			lock := mocks.NewMockLockReader(ctrl)
			lock.EXPECT().IsLocked(gomock.Any()).Return(tt.locked.ok, tt.locked.err)

			broker := mocks.NewMockProber(ctrl)
			broker.EXPECT().HealthCheck(gomock.Any()).Return(tt.broker.ok, tt.broker.err)

			cache := mocks.NewMockProber(ctrl)
			call := cache.EXPECT().HealthCheck(gomock.Any())
			if tt.cache.panic {
				call.DoAndReturn(func(context.Context) (bool, error) { panic("client not initialised") })
			} else {
				call.Return(tt.cache.ok, tt.cache.err)
			}

			m := metrics.NewWithRegisterer(prometheus.NewRegistry())
			agg := health.NewAggregator(health.Config{
				Broker:     broker,
				Datastore:  lock,
				ProxyCache: cache,
				Version:    "1.2.3",
				StartTime:  started,
				Metrics:    m,
				Logger:     zerolog.Nop(),
				Now:        func() time.Time { return started.Add(90 * time.Second) },
			})

			report := agg.Check(context.Background())

			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, 90.0, report.Uptime)
			assert.Equal(t, started, report.StartTime)
			assert.Equal(t, "1.2.3", report.VersionNumber)

			require.Len(t, report.Services, 3)
			names := []string{report.Services[0].Name, report.Services[1].Name, report.Services[2].Name}
			assert.Equal(t, []string{health.ServiceDatastore, health.ServiceBroker, health.ServiceProxyCache}, names)

			var gotDown []string
			for _, s := range report.Services {
				if s.Status == health.StatusDown {
					gotDown = append(gotDown, s.Name)
				}
				want := 1.0
				if s.Status == health.StatusDown {
					want = 0
				}
				assert.Equal(t, want, testutil.ToFloat64(m.ServiceUp.WithLabelValues(s.Name)), s.Name)
			}
			assert.Equal(t, tt.wantDown, gotDown)
		})
	}
}

func TestAggregator_MissingProbesReportDown(t *testing.T) {
	agg := health.NewAggregator(health.Config{Logger: zerolog.Nop()})

	report := agg.Check(context.Background())

	assert.False(t, report.OK())
	for _, s := range report.Services {
		assert.Equal(t, health.StatusDown, s.Status, s.Name)
	}
}

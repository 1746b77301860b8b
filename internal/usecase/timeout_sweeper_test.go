package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/centralledger/internal/domain"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
	"github.com/iho/centralledger/internal/usecase"
	"github.com/iho/centralledger/internal/usecase/mocks"
)

func newSweeper(store *mocks.Store, pub *mocks.MockPublisher, m *metrics.Metrics) *usecase.TimeoutSweeper {
	return usecase.NewTimeoutSweeper(usecase.TimeoutSweeperConfig{
		TransferRepo: mocks.NewMockTransferRepository(store),
		Publisher:    pub,
		IDGen:        mocks.NewMockIDGenerator(),
		Metrics:      m,
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return testNow },
		Interval:     10 * time.Millisecond,
		BatchSize:    2,
	})
}

func putTransfer(store *mocks.Store, id string, state domain.TransferState, expiresAt time.Time) {
	store.PutTransfer(&domain.Transfer{
		ID:        id,
		PayerID:   "dfsp1",
		PayeeID:   "dfsp2",
		Amount:    decimal.NewFromInt(5),
		Currency:  "USD",
		State:     state,
		ExpiresAt: expiresAt,
	})
}

func TestTimeoutSweeper_EmitsOnlyExpiredReservations(t *testing.T) {
	store := mocks.NewStore()
	putTransfer(store, "t-expired", domain.TransferStateReserved, testNow.Add(-time.Minute))
	putTransfer(store, "t-boundary", domain.TransferStateReserved, testNow)
	putTransfer(store, "t-live", domain.TransferStateReserved, testNow.Add(time.Minute))
	putTransfer(store, "t-done", domain.TransferStateCommitted, testNow.Add(-time.Minute))

	pub := mocks.NewMockPublisher()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	n, err := newSweeper(store, pub, m).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msgs := pub.Messages(domain.TopicTransferPosition)
	require.Len(t, msgs, 2)

	first, err := domain.DecodeEvent(msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "t-expired", first.TransferID)
	assert.Equal(t, domain.ActionTimeout, first.Action)
	assert.Equal(t, domain.ReasonExpired, first.Reason)
	assert.Equal(t, "dfsp1/USD", msgs[0].Key)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransfersSwept))
}

func TestTimeoutSweeper_RespectsBatchSize(t *testing.T) {
	store := mocks.NewStore()
	for _, id := range []string{"a", "b", "c"} {
		putTransfer(store, id, domain.TransferStateReserved, testNow.Add(-time.Minute))
	}
	pub := mocks.NewMockPublisher()

	n, err := newSweeper(store, pub, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTimeoutSweeper_PublishFailure(t *testing.T) {
	store := mocks.NewStore()
	putTransfer(store, "t-expired", domain.TransferStateReserved, testNow.Add(-time.Minute))
	pub := mocks.NewMockPublisher()
	pub.PublishFunc = func(ctx context.Context, topic, key string, value []byte) error {
		return errors.New("broker unavailable")
	}

	n, err := newSweeper(store, pub, nil).Sweep(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestTimeoutSweeper_StartStopsOnCancel(t *testing.T) {
	store := mocks.NewStore()
	putTransfer(store, "t-expired", domain.TransferStateReserved, testNow.Add(-time.Minute))
	pub := mocks.NewMockPublisher()
	s := newSweeper(store, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		return len(pub.Messages(domain.TopicTransferPosition)) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

// A transfer swept again before its timeout is applied must stay harmless.
func TestTimeoutSweeper_RepeatedSweepIsIdempotentDownstream(t *testing.T) {
	h := newHarness(t)
	payer := domain.PositionKey{AccountID: "dfsp1", Currency: "USD"}
	payee := domain.PositionKey{AccountID: "dfsp2", Currency: "USD"}
	h.open(t, payer, 100)
	h.open(t, payee, 0)

	prep := prepareEvent(t1, "dfsp1", "dfsp2", "40")
	prep.Transfer.ExpiresAt = testNow.Add(-time.Second)
	require.NoError(t, h.deliver(t, prep))

	pub := mocks.NewMockPublisher()
	s := newSweeper(h.store, pub, nil)

	for i := 0; i < 2; i++ {
		_, err := s.Sweep(context.Background())
		require.NoError(t, err)
	}

	for _, msg := range pub.Messages(domain.TopicTransferPosition) {
		require.NoError(t, h.handler.Handle(context.Background(), &usecase.Message{Value: msg.Value}))
	}

	assertBalance(t, h.store.Position(payer), 100, 0)
	assert.Equal(t, domain.TransferStateAborted, h.store.Transfer(t1).State)
}

package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/centralledger/internal/domain"
)

func TestTransferUseCase_GetStateHistory(t *testing.T) {
	h := newHarness(t)
	h.open(t, domain.PositionKey{AccountID: "dfsp1", Currency: "USD"}, 100)
	h.open(t, domain.PositionKey{AccountID: "dfsp2", Currency: "USD"}, 0)
	require.NoError(t, h.deliver(t, prepareEvent(t1, "dfsp1", "dfsp2", "10")))
	require.NoError(t, h.deliver(t, decisionEvent(t1, domain.ActionCommit, domain.ReasonNone)))

	uc := h.transfers()

	tr, err := uc.GetTransfer(context.Background(), t1)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateCommitted, tr.State)

	history, err := uc.GetStateHistory(context.Background(), t1)
	require.NoError(t, err)
	var states []domain.TransferState
	for _, c := range history {
		states = append(states, c.State)
	}
	assert.Equal(t, []domain.TransferState{
		domain.TransferStateReceived,
		domain.TransferStateReserved,
		domain.TransferStateCommitted,
	}, states)
}

func TestTransferUseCase_Errors(t *testing.T) {
	uc := newHarness(t).transfers()

	_, err := uc.GetTransfer(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidTransferID)

	_, err = uc.GetStateHistory(context.Background(), t1)
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	raw := []byte(`{
		"id": "01HZY",
		"transferId": "b51ec534-ee48-4575-b6a9-ead2955b8069",
		"action": "prepare",
		"transfer": {
			"transferId": "b51ec534-ee48-4575-b6a9-ead2955b8069",
			"payerFsp": "dfsp1",
			"payeeFsp": "dfsp2",
			"amount": "40.50",
			"currency": "USD",
			"expiration": "2026-03-01T12:00:00Z"
		}
	}`)

	ev, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ActionPrepare, ev.Action)

	transfer, err := ev.Transfer.ToTransfer()
	require.NoError(t, err)
	assert.Equal(t, "dfsp1", transfer.PayerID)
	assert.Equal(t, "40.5", transfer.Amount.String())
	assert.Equal(t, TransferStateReceived, transfer.State)
	assert.True(t, transfer.ExpiresAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":             `{`,
		"unknown action":       `{"transferId":"t1","action":"settle"}`,
		"id mismatch":          `{"transferId":"t1","action":"prepare","transfer":{"transferId":"t2"}}`,
		"missing payload":      `{"transferId":"t1","action":"prepare"}`,
		"same payer and payee": `{"transferId":"t1","action":"prepare","transfer":{"transferId":"t1","payerFsp":"dfsp1","payeeFsp":"dfsp1","amount":"10","currency":"USD"}}`,
		"zero amount":          `{"transferId":"t1","action":"prepare","transfer":{"transferId":"t1","payerFsp":"dfsp1","payeeFsp":"dfsp2","amount":"0","currency":"USD"}}`,
		"negative amount":      `{"transferId":"t1","action":"prepare","transfer":{"transferId":"t1","payerFsp":"dfsp1","payeeFsp":"dfsp2","amount":"-5","currency":"USD"}}`,
		"too precise":          `{"transferId":"t1","action":"prepare","transfer":{"transferId":"t1","payerFsp":"dfsp1","payeeFsp":"dfsp2","amount":"1.000001","currency":"USD"}}`,
		"missing payee":        `{"transferId":"t1","action":"prepare","transfer":{"transferId":"t1","payerFsp":"dfsp1","amount":"10","currency":"USD"}}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(raw))
			assert.True(t, errors.Is(err, ErrInvalidEvent), "got %v", err)
		})
	}
}

func TestTransferPayload_BadAmount(t *testing.T) {
	p := &TransferPayload{TransferID: "t1", Amount: "forty"}

	_, err := p.ToTransfer()
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTransferToPayload_RoundTrip(t *testing.T) {
	ev := &Event{ID: "e1", TransferID: "t1", Action: ActionPrepare, Transfer: preparePayload("12.3400")}
	ev.Transfer.TransferID = "t1"

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)

	transfer, err := decoded.Transfer.ToTransfer()
	require.NoError(t, err)
	assert.Equal(t, "12.34", TransferToPayload(transfer).Amount)
}

func TestTransferPayload_SameTerms(t *testing.T) {
	p := preparePayload("40.00")
	transfer, err := p.ToTransfer()
	require.NoError(t, err)

	assert.True(t, p.SameTerms(transfer))

	other := preparePayload("40")
	other.PayerID = "dfsp3"
	assert.False(t, other.SameTerms(transfer))

	other = preparePayload("41")
	assert.False(t, other.SameTerms(transfer))
}

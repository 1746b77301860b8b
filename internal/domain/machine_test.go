package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var machineNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const machineTransferID = "b51ec534-ee48-4575-b6a9-ead2955b8069"

func preparePayload(amount string) *TransferPayload {
	return &TransferPayload{
		TransferID: machineTransferID,
		PayerID:    "dfsp1",
		PayeeID:    "dfsp2",
		Amount:     amount,
		Currency:   "USD",
		ExpiresAt:  machineNow.Add(time.Minute),
	}
}

func prepareEvent(amount string) *Event {
	return &Event{ID: "ev-1", TransferID: machineTransferID, Action: ActionPrepare, Transfer: preparePayload(amount)}
}

func position(account string, balance, reserved int64) *Position {
	return &Position{
		AccountID: account,
		Currency:  "USD",
		Balance:   decimal.NewFromInt(balance),
		Reserved:  decimal.NewFromInt(reserved),
	}
}

func reservedTransfer() *Transfer {
	return &Transfer{
		ID:        machineTransferID,
		PayerID:   "dfsp1",
		PayeeID:   "dfsp2",
		Amount:    decimal.NewFromInt(40),
		Currency:  "USD",
		State:     TransferStateReserved,
		ExpiresAt: machineNow.Add(time.Minute),
	}
}

func TestTransition_Prepare(t *testing.T) {
	tests := []struct {
		name        string
		payer       *Position
		payee       *Position
		amount      string
		wantState   TransferState
		wantReason  Reason
		wantReserve bool
	}{
		{
			name:        "sufficient funds",
			payer:       position("dfsp1", 100, 0),
			payee:       position("dfsp2", 0, 0),
			amount:      "40",
			wantState:   TransferStateReserved,
			wantReserve: true,
		},
		{
			name:        "exactly available",
			payer:       position("dfsp1", 100, 60),
			payee:       position("dfsp2", 0, 0),
			amount:      "40",
			wantState:   TransferStateReserved,
			wantReserve: true,
		},
		{
			name:       "reserved funds are not available",
			payer:      position("dfsp1", 100, 70),
			payee:      position("dfsp2", 0, 0),
			amount:     "40",
			wantState:  TransferStateAborted,
			wantReason: ReasonInsufficientFunds,
		},
		{
			name:       "insufficient funds",
			payer:      position("dfsp1", 10, 0),
			payee:      position("dfsp2", 0, 0),
			amount:     "40",
			wantState:  TransferStateAborted,
			wantReason: ReasonInsufficientFunds,
		},
		{
			name:       "payer missing",
			payee:      position("dfsp2", 0, 0),
			amount:     "40",
			wantState:  TransferStateAborted,
			wantReason: ReasonPayerNotFound,
		},
		{
			name:       "payee missing",
			payer:      position("dfsp1", 100, 0),
			amount:     "40",
			wantState:  TransferStateAborted,
			wantReason: ReasonPayeeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transition(nil, prepareEvent(tt.amount), tt.payer, tt.payee, machineNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Duplicate {
				t.Fatal("unexpected duplicate")
			}
			if out.Transfer.State != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, out.Transfer.State)
			}
			if out.Transfer.Reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, out.Transfer.Reason)
			}
			if tt.wantReserve {
				if out.Instruction == nil || out.Instruction.Kind != InstructionReserve {
					t.Fatalf("expected RESERVE instruction, got %+v", out.Instruction)
				}
				if !out.Instruction.Amount.Equal(decimal.NewFromInt(40)) {
					t.Errorf("expected amount 40, got %s", out.Instruction.Amount)
				}
			} else if out.Instruction != nil {
				t.Errorf("expected no instruction, got %+v", out.Instruction)
			}
			if len(out.Changes) != 2 || out.Changes[0].State != TransferStateReceived {
				t.Errorf("expected RECEIVED then %s, got %+v", tt.wantState, out.Changes)
			}
			if len(out.Notifications) != 1 {
				t.Fatalf("expected 1 notification, got %d", len(out.Notifications))
			}
		})
	}
}

func TestTransition_PrepareDuplicate(t *testing.T) {
	for _, state := range []TransferState{TransferStateReserved, TransferStateCommitted, TransferStateAborted} {
		current := reservedTransfer()
		current.State = state

		out, err := Transition(current, prepareEvent("40"), position("dfsp1", 100, 40), position("dfsp2", 0, 0), machineNow)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", state, err)
		}
		if !out.Duplicate {
			t.Errorf("%s: expected duplicate", state)
		}
		if out.Instruction != nil || out.Transfer != nil {
			t.Errorf("%s: duplicate must not produce effects", state)
		}
	}
}

func TestTransition_Reserved(t *testing.T) {
	tests := []struct {
		name       string
		action     Action
		reason     Reason
		wantState  TransferState
		wantReason Reason
		wantKind   InstructionKind
		wantSteps  []TransferState
	}{
		{
			name:      "commit",
			action:    ActionCommit,
			wantState: TransferStateCommitted,
			wantKind:  InstructionCommit,
			wantSteps: []TransferState{TransferStateCommitted},
		},
		{
			name:       "reject",
			action:     ActionAbort,
			reason:     ReasonRejected,
			wantState:  TransferStateAborted,
			wantReason: ReasonRejected,
			wantKind:   InstructionRelease,
			wantSteps:  []TransferState{TransferStateAborted},
		},
		{
			name:       "abort without reason",
			action:     ActionAbort,
			wantState:  TransferStateAborted,
			wantReason: ReasonAborted,
			wantKind:   InstructionRelease,
			wantSteps:  []TransferState{TransferStateAborted},
		},
		{
			name:       "timeout",
			action:     ActionTimeout,
			wantState:  TransferStateAborted,
			wantReason: ReasonExpired,
			wantKind:   InstructionRelease,
			wantSteps:  []TransferState{TransferStateExpired, TransferStateAborted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &Event{ID: "ev-2", TransferID: machineTransferID, Action: tt.action, Reason: tt.reason}

			out, err := Transition(reservedTransfer(), ev, position("dfsp1", 100, 40), position("dfsp2", 0, 0), machineNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Transfer.State != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, out.Transfer.State)
			}
			if out.Transfer.Reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, out.Transfer.Reason)
			}
			if out.Instruction == nil || out.Instruction.Kind != tt.wantKind {
				t.Fatalf("expected %s instruction, got %+v", tt.wantKind, out.Instruction)
			}
			if len(out.Changes) != len(tt.wantSteps) {
				t.Fatalf("expected %d state changes, got %d", len(tt.wantSteps), len(out.Changes))
			}
			for i, s := range tt.wantSteps {
				if out.Changes[i].State != s {
					t.Errorf("change %d: expected %s, got %s", i, s, out.Changes[i].State)
				}
			}
			if len(out.Notifications) != 2 {
				t.Errorf("expected payer and payee notifications, got %d", len(out.Notifications))
			}
		})
	}
}

func TestTransition_CommitDoesNotMutateInput(t *testing.T) {
	current := reservedTransfer()
	ev := &Event{ID: "ev-2", TransferID: machineTransferID, Action: ActionCommit}

	if _, err := Transition(current, ev, position("dfsp1", 100, 40), position("dfsp2", 0, 0), machineNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.State != TransferStateReserved {
		t.Errorf("input transfer was mutated to %s", current.State)
	}
}

func TestTransition_Terminal(t *testing.T) {
	tests := []struct {
		name      string
		state     TransferState
		action    Action
		duplicate bool
		errorCode string
	}{
		{"committed commit", TransferStateCommitted, ActionCommit, true, ""},
		{"committed abort", TransferStateCommitted, ActionAbort, false, ErrorCodeAlreadyCommitted},
		{"committed timeout", TransferStateCommitted, ActionTimeout, false, ErrorCodeAlreadyCommitted},
		{"aborted abort", TransferStateAborted, ActionAbort, true, ""},
		{"aborted timeout", TransferStateAborted, ActionTimeout, true, ""},
		{"aborted commit", TransferStateAborted, ActionCommit, false, ErrorCodeAlreadyAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := reservedTransfer()
			current.State = tt.state
			ev := &Event{ID: "ev-3", TransferID: machineTransferID, Action: tt.action}

			out, err := Transition(current, ev, position("dfsp1", 60, 0), position("dfsp2", 40, 0), machineNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Duplicate != tt.duplicate {
				t.Errorf("expected duplicate=%v, got %v", tt.duplicate, out.Duplicate)
			}
			if out.Transfer != nil || out.Instruction != nil {
				t.Error("terminal transfer must not change")
			}
			if tt.errorCode != "" {
				if len(out.Notifications) != 1 || out.Notifications[0].ErrorCode != tt.errorCode {
					t.Errorf("expected %s notification, got %+v", tt.errorCode, out.Notifications)
				}
			}
		})
	}
}

func TestTransition_UnknownTransfer(t *testing.T) {
	ev := &Event{ID: "ev-4", TransferID: machineTransferID, Action: ActionCommit}

	out, err := Transition(nil, ev, nil, nil, machineNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Instruction != nil || out.Transfer != nil {
		t.Error("unknown transfer must not change anything")
	}
	if len(out.Notifications) != 1 || out.Notifications[0].ErrorCode != ErrorCodeNotFound {
		t.Errorf("expected not found notification, got %+v", out.Notifications)
	}
}

func TestTransition_InvalidEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   *Event
	}{
		{"unknown action", &Event{TransferID: machineTransferID, Action: "settle"}},
		{"prepare without terms", &Event{TransferID: machineTransferID, Action: ActionPrepare}},
		{"missing transfer id", &Event{Action: ActionCommit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transition(nil, tt.ev, nil, nil, machineNow)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}

func TestTransition_ReceivedIsNotActionable(t *testing.T) {
	current := reservedTransfer()
	current.State = TransferStateReceived
	ev := &Event{TransferID: machineTransferID, Action: ActionCommit}

	_, err := Transition(current, ev, nil, nil, machineNow)
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

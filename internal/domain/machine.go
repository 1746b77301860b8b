package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InstructionKind is the position mutation requested by a transition.
type InstructionKind string

const (
	// InstructionReserve moves amount from available into reserved on the payer.
	InstructionReserve InstructionKind = "RESERVE"
	// InstructionCommit debits the payer, credits the payee and consumes the reservation.
	InstructionCommit InstructionKind = "COMMIT"
	// InstructionRelease returns the reserved amount to the payer's available balance.
	InstructionRelease InstructionKind = "RELEASE"
)

// PositionInstruction is the single position delta a transition may emit.
type PositionInstruction struct {
	Kind       InstructionKind
	TransferID string
	Payer      PositionKey
	Payee      PositionKey
	Amount     decimal.Decimal
}

// Outcome is everything a transition produces. It carries no side effects itself.
type Outcome struct {
	Transfer      *Transfer
	Instruction   *PositionInstruction
	Changes       []StateChange
	Notifications []Notification
	Duplicate     bool
}

// Transition evaluates ev against the current transfer record and the positions involved.
// current is nil when the transfer has never been seen. payer and payee are nil when the
// corresponding position does not exist.
func Transition(current *Transfer, ev *Event, payer, payee *Position, now time.Time) (*Outcome, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	if ev.Action == ActionPrepare {
		if current != nil {
			return &Outcome{Duplicate: true}, nil
		}
		return prepare(ev, payer, payee, now)
	}

	if current == nil {
		return &Outcome{
			Notifications: []Notification{errorNotification(ev.TransferID, SwitchID, ErrorCodeNotFound, ErrTransferNotFound.Error(), now)},
		}, nil
	}

	switch current.State {
	case TransferStateReserved:
		switch ev.Action {
		case ActionCommit:
			return commit(current, payee, now), nil
		case ActionAbort:
			reason := ev.Reason
			if reason == ReasonNone {
				reason = ReasonAborted
			}
			return release(current, ActionAbort, reason, nil, now), nil
		case ActionTimeout:
			return release(current, ActionTimeout, ReasonExpired, []TransferState{TransferStateExpired}, now), nil
		}
	case TransferStateCommitted:
		if ev.Action == ActionCommit {
			return &Outcome{Duplicate: true}, nil
		}
		return &Outcome{
			Notifications: []Notification{errorNotification(current.ID, current.PayeeID, ErrorCodeAlreadyCommitted, "transfer already committed", now)},
		}, nil
	case TransferStateAborted:
		if ev.Action != ActionCommit {
			return &Outcome{Duplicate: true}, nil
		}
		return &Outcome{
			Notifications: []Notification{errorNotification(current.ID, current.PayeeID, ErrorCodeAlreadyAborted, "transfer already aborted", now)},
		}, nil
	}

	return nil, fmt.Errorf("%w: %s on %s transfer", ErrInvalidEvent, ev.Action, current.State)
}

func prepare(ev *Event, payer, payee *Position, now time.Time) (*Outcome, error) {
	t, err := ev.Transfer.ToTransfer()
	if err != nil {
		return nil, err
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	reason := ReasonNone
	switch {
	case payer == nil:
		reason = ReasonPayerNotFound
	case payee == nil:
		reason = ReasonPayeeNotFound
	case !payer.CanReserve(t.Amount):
		reason = ReasonInsufficientFunds
	}

	if reason != ReasonNone {
		t.State = TransferStateAborted
		t.Reason = reason
		return &Outcome{
			Transfer: t,
			Changes:  changes(t.ID, now, reason, TransferStateReceived, TransferStateAborted),
			Notifications: []Notification{{
				CreatedAt:        now,
				TransferID:       t.ID,
				To:               t.PayerID,
				From:             SwitchID,
				Action:           ActionAbort,
				State:            TransferStateAborted,
				Reason:           reason,
				Amount:           t.Amount.String(),
				Currency:         t.Currency,
				ErrorCode:        string(reason),
				ErrorDescription: "transfer aborted on prepare",
			}},
		}, nil
	}

	t.State = TransferStateReserved
	return &Outcome{
		Transfer: t,
		Instruction: &PositionInstruction{
			Kind:       InstructionReserve,
			TransferID: t.ID,
			Payer:      t.PayerKey(),
			Payee:      t.PayeeKey(),
			Amount:     t.Amount,
		},
		Changes:       changes(t.ID, now, ReasonNone, TransferStateReceived, TransferStateReserved),
		Notifications: []Notification{notification(t, t.PayeeID, t.PayerID, ActionPrepare, now)},
	}, nil
}

func commit(current *Transfer, payee *Position, now time.Time) *Outcome {
	if payee == nil {
		return release(current, ActionAbort, ReasonPayeeNotFound, nil, now)
	}

	next := *current
	next.State = TransferStateCommitted
	next.Reason = ReasonNone
	next.UpdatedAt = now

	return &Outcome{
		Transfer: &next,
		Instruction: &PositionInstruction{
			Kind:       InstructionCommit,
			TransferID: next.ID,
			Payer:      next.PayerKey(),
			Payee:      next.PayeeKey(),
			Amount:     next.Amount,
		},
		Changes: changes(next.ID, now, ReasonNone, TransferStateCommitted),
		Notifications: []Notification{
			notification(&next, next.PayerID, SwitchID, ActionCommit, now),
			notification(&next, next.PayeeID, SwitchID, ActionCommit, now),
		},
	}
}

func release(current *Transfer, action Action, reason Reason, via []TransferState, now time.Time) *Outcome {
	next := *current
	next.State = TransferStateAborted
	next.Reason = reason
	next.UpdatedAt = now

	return &Outcome{
		Transfer: &next,
		Instruction: &PositionInstruction{
			Kind:       InstructionRelease,
			TransferID: next.ID,
			Payer:      next.PayerKey(),
			Payee:      next.PayeeKey(),
			Amount:     next.Amount,
		},
		Changes: changes(next.ID, now, reason, append(via, TransferStateAborted)...),
		Notifications: []Notification{
			notification(&next, next.PayerID, SwitchID, action, now),
			notification(&next, next.PayeeID, SwitchID, action, now),
		},
	}
}

func changes(transferID string, now time.Time, reason Reason, states ...TransferState) []StateChange {
	out := make([]StateChange, 0, len(states))
	for _, s := range states {
		c := StateChange{TransferID: transferID, State: s, CreatedAt: now}
		if s == TransferStateAborted {
			c.Reason = reason
		}
		out = append(out, c)
	}
	return out
}

func notification(t *Transfer, to, from string, action Action, now time.Time) Notification {
	return Notification{
		CreatedAt:  now,
		TransferID: t.ID,
		To:         to,
		From:       from,
		Action:     action,
		State:      t.State,
		Reason:     t.Reason,
		Amount:     t.Amount.String(),
		Currency:   t.Currency,
	}
}

func errorNotification(transferID, to, code, description string, now time.Time) Notification {
	return Notification{
		CreatedAt:        now,
		TransferID:       transferID,
		To:               to,
		From:             SwitchID,
		Action:           ActionError,
		ErrorCode:        code,
		ErrorDescription: description,
	}
}

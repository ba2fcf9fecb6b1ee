// Package trade defines the persisted trade record and its lifecycle
// state machine.
package trade

import (
	"fmt"
	"time"

	"github.com/rustyeddy/platinum/market"
	"github.com/rustyeddy/platinum/pkg/id"
)

// Status is the lifecycle state of a Trade.
type Status string

const (
	// StatusPendingEntry: the risk gate accepted the signal; the entry
	// order is about to be (or was just) submitted. Persisted before any
	// order reaches the broker.
	StatusPendingEntry Status = "pending-entry"
	// StatusEntrySubmitted: entry acknowledged by the broker, awaiting fill.
	StatusEntrySubmitted Status = "entry-submitted"
	// StatusOpen: entry filled; the OCO bracket is live.
	StatusOpen Status = "open"

	StatusClosedTarget Status = "closed-target"
	StatusClosedStop   Status = "closed-stop"
	StatusClosedManual Status = "closed-manual"
	// StatusFailed: submission rejected, or the entry timed out unfilled
	// and was cancelled.
	StatusFailed Status = "failed"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusClosedTarget, StatusClosedStop, StatusClosedManual, StatusFailed:
		return true
	}
	return false
}

// Exit reasons recorded on terminal trades.
const (
	ExitTarget       = "target"
	ExitStop         = "stop"
	ExitManual       = "manual"
	ExitRejected     = "rejected"
	ExitEntryTimeout = "entry-timeout"
	ExitUnsubmitted  = "recovered-unsubmitted"
	ExitAbandoned    = "abandoned-rollover"
)

// Trade is the unit of persisted state: one accepted breakout signal and
// the orders it produced.
type Trade struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Direction market.Direction `json:"direction"`

	EntryOrderID  string `json:"entry_order_id,omitempty"`
	TargetOrderID string `json:"target_order_id,omitempty"`
	StopOrderID   string `json:"stop_order_id,omitempty"`

	Status Status `json:"status"`

	TriggerPrice float64 `json:"trigger_price"`
	EntryPrice   float64 `json:"entry_price,omitempty"`
	TargetPrice  float64 `json:"target_price,omitempty"`
	StopPrice    float64 `json:"stop_price,omitempty"`

	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at,omitzero"`
	ExitReason string    `json:"exit_reason,omitempty"`
}

// New creates a pending-entry trade for an accepted signal.
func New(sessionID string, dir market.Direction, triggerPrice float64, openedAt time.Time) Trade {
	return Trade{
		ID:           id.New(),
		SessionID:    sessionID,
		Direction:    dir,
		Status:       StatusPendingEntry,
		TriggerPrice: triggerPrice,
		OpenedAt:     openedAt,
	}
}

func (t Trade) Terminal() bool { return t.Status.Terminal() }

// transitions is the set of legal status moves.
var transitions = map[Status][]Status{
	StatusPendingEntry:   {StatusEntrySubmitted, StatusFailed},
	StatusEntrySubmitted: {StatusOpen, StatusFailed},
	StatusOpen:           {StatusClosedTarget, StatusClosedStop, StatusClosedManual},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the trade to a new status, stamping ClosedAt and the
// exit reason on terminal moves.
func (t *Trade) Transition(to Status, reason string, at time.Time) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("trade %s: illegal transition %s -> %s", t.ID, t.Status, to)
	}
	t.Status = to
	if to.Terminal() {
		t.ClosedAt = at
		t.ExitReason = reason
	}
	return nil
}

// Package risk decides whether a breakout signal may become an order.
package risk

import (
	"fmt"
	"time"

	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/state"
	"github.com/rustyeddy/platinum/strategy"
)

// Violation codes.
const (
	CodeWindowClosed  = "WINDOW_CLOSED"
	CodeEntryDelay    = "ENTRY_DELAY"
	CodeMaxTrades     = "MAX_TRADES"
	CodeDirectionUsed = "DIRECTION_USED"
	CodeTradeOpen     = "TRADE_OPEN"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the gate's verdict. Allowed is false if any violation was
// recorded; the violations carry the rejection reasons for logging and
// notifications.
type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason flattens the violations into one line.
func (d Decision) Reason() string {
	if d.Allowed {
		return ""
	}
	s := ""
	for i, v := range d.Violations {
		if i > 0 {
			s += "; "
		}
		s += v.Msg
	}
	return s
}

// Gate enforces per-session trade eligibility. Stateless; everything it
// needs arrives as arguments.
type Gate struct {
	Loc *time.Location
}

// Admit decides whether a signal may become a trade. Acceptance is the
// sole authority to create one: the caller must persist the new trade in
// pending-entry status before any order is sent to the broker.
func (g Gate) Admit(
	sig strategy.Signal,
	cfg session.Config,
	ss *state.SessionState,
	phase session.Phase,
	now time.Time,
) Decision {
	d := Decision{Allowed: true}

	// Guards against a late-arriving candle after window close.
	if phase != session.PhaseWindowOpen {
		d.add(CodeWindowClosed, fmt.Sprintf("session %s window is %s", cfg.ID, phase))
		return d
	}

	local := now.In(g.Loc)
	if eligible := cfg.EligibleFrom(local, g.Loc); local.Before(eligible) {
		d.add(CodeEntryDelay, fmt.Sprintf("entries allowed from %s", eligible.Format("15:04")))
	}

	if ss.TradesUsed() >= cfg.MaxTradesTotal {
		d.add(CodeMaxTrades, fmt.Sprintf("max trades reached (%d/%d)", ss.TradesUsed(), cfg.MaxTradesTotal))
	}

	// Each direction may only be attempted once, regardless of outcome.
	if ss.DirectionUsed(sig.Direction) {
		d.add(CodeDirectionUsed, fmt.Sprintf("direction %s already attempted", sig.Direction))
	}

	if open := ss.OpenTrade(); open != nil {
		d.add(CodeTradeOpen, fmt.Sprintf("trade %s still %s", open.ID, open.Status))
	}

	return d
}

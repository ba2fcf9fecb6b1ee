// Package state holds the per-day persisted record of session and trade
// progress, and the crash-safe store that owns the file on disk.
package state

import (
	"fmt"

	"github.com/rustyeddy/platinum/market"
	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/strategy"
	"github.com/rustyeddy/platinum/trade"
)

// SessionState is one session's progress through the current day.
type SessionState struct {
	// Range is the captured reference range, nil until the session arms.
	Range *strategy.Range `json:"range"`
	// RangeAttempted marks that a capture was tried, successful or not.
	// A failed attempt skips the session for the day; stale ranges are
	// never re-fetched.
	RangeAttempted bool `json:"range_attempted"`

	Trades []trade.Trade `json:"trades"`
}

// TradesUsed is the number of trades ever created this session,
// regardless of outcome.
func (s *SessionState) TradesUsed() int { return len(s.Trades) }

// DirectionUsed reports whether a trade was already attempted in the
// given direction. Each direction may only be attempted once per session.
func (s *SessionState) DirectionUsed(d market.Direction) bool {
	for i := range s.Trades {
		if s.Trades[i].Direction == d {
			return true
		}
	}
	return false
}

// OpenTrade returns the session's non-terminal trade, or nil. At most one
// can exist at a time.
func (s *SessionState) OpenTrade() *trade.Trade {
	for i := range s.Trades {
		if !s.Trades[i].Terminal() {
			return &s.Trades[i]
		}
	}
	return nil
}

// AddTrade appends a new trade, enforcing the session invariants: total
// budget, one attempt per direction, no concurrent open positions.
func (s *SessionState) AddTrade(t trade.Trade, maxTotal int) error {
	if len(s.Trades) >= maxTotal {
		return fmt.Errorf("session trade budget exhausted (%d)", maxTotal)
	}
	if s.DirectionUsed(t.Direction) {
		return fmt.Errorf("direction %s already attempted", t.Direction)
	}
	if open := s.OpenTrade(); open != nil {
		return fmt.Errorf("trade %s still open", open.ID)
	}
	s.Trades = append(s.Trades, t)
	return nil
}

// FindTrade returns the trade with the given id, or nil.
func (s *SessionState) FindTrade(id string) *trade.Trade {
	for i := range s.Trades {
		if s.Trades[i].ID == id {
			return &s.Trades[i]
		}
	}
	return nil
}

// Exhausted reports whether the detector can be torn down: both the total
// budget and every direction are spent.
func (s *SessionState) Exhausted(maxTotal int) bool {
	if len(s.Trades) >= maxTotal {
		return true
	}
	return s.DirectionUsed(market.Long) && s.DirectionUsed(market.Short)
}

// Day is the process-wide persisted record for one exchange-local date.
type Day struct {
	Date     string                   `json:"date"`
	Sessions map[string]*SessionState `json:"sessions"`
}

// NewDay returns a fresh record for the given trading date.
func NewDay(d session.Date) Day {
	return Day{Date: d.String(), Sessions: map[string]*SessionState{}}
}

// Session returns the state for a session id, creating it if absent.
func (d *Day) Session(id string) *SessionState {
	if d.Sessions == nil {
		d.Sessions = map[string]*SessionState{}
	}
	s, ok := d.Sessions[id]
	if !ok {
		s = &SessionState{}
		d.Sessions[id] = s
	}
	return s
}

// FindTrade locates a trade by its id, returning it and its session id.
func (d *Day) FindTrade(id string) (*trade.Trade, string) {
	for sid, ss := range d.Sessions {
		if t := ss.FindTrade(id); t != nil {
			return t, sid
		}
	}
	return nil, ""
}

// FindByOrderID locates the trade owning a broker order id.
func (d *Day) FindByOrderID(orderID string) (*trade.Trade, string) {
	for sid, ss := range d.Sessions {
		for i := range ss.Trades {
			t := &ss.Trades[i]
			if t.EntryOrderID == orderID || t.TargetOrderID == orderID || t.StopOrderID == orderID {
				return t, sid
			}
		}
	}
	return nil, ""
}

// NonTerminal returns every trade still in flight across all sessions.
func (d *Day) NonTerminal() []*trade.Trade {
	var out []*trade.Trade
	for _, ss := range d.Sessions {
		for i := range ss.Trades {
			if !ss.Trades[i].Terminal() {
				out = append(out, &ss.Trades[i])
			}
		}
	}
	return out
}

// Clone deep-copies the day so callers can mutate a snapshot and replace
// the whole state atomically.
func (d Day) Clone() Day {
	out := Day{Date: d.Date, Sessions: make(map[string]*SessionState, len(d.Sessions))}
	for id, ss := range d.Sessions {
		cp := &SessionState{RangeAttempted: ss.RangeAttempted}
		if ss.Range != nil {
			r := *ss.Range
			cp.Range = &r
		}
		cp.Trades = append([]trade.Trade(nil), ss.Trades...)
		out.Sessions[id] = cp
	}
	return out
}

package session

import (
	"fmt"
	"time"
)

// Phase is where a session sits relative to the current time.
type Phase int

const (
	// PhaseWaitingRange: the reference candle has not closed yet.
	PhaseWaitingRange Phase = iota
	// PhaseArmed: the reference candle is complete, window not yet open.
	PhaseArmed
	// PhaseWindowOpen: breakout entries may be evaluated.
	PhaseWindowOpen
	// PhaseWindowClosed: the session is done for the day.
	PhaseWindowClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingRange:
		return "waiting-for-range"
	case PhaseArmed:
		return "armed"
	case PhaseWindowOpen:
		return "window-open"
	case PhaseWindowClosed:
		return "window-closed"
	}
	return "unknown"
}

// Date is an exchange-local calendar day. Comparing typed dates instead
// of host-local strings keeps daylight-saving shifts out of the daily
// reset logic.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Equal(o Date) bool { return d == o }

// ParseDate parses the YYYY-MM-DD form produced by String.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}, nil
}

// Calendar maps wall-clock time to session phases in the exchange's
// trading timezone. Pure function of time plus the immutable session
// table; it holds no other state.
type Calendar struct {
	loc      *time.Location
	sessions []Config
}

func NewCalendar(timezone string, sessions []Config) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if err := Validate(sessions); err != nil {
		return nil, err
	}
	return &Calendar{loc: loc, sessions: sessions}, nil
}

func (c *Calendar) Location() *time.Location { return c.loc }
func (c *Calendar) Sessions() []Config       { return c.sessions }

// Session returns the config for an id, or nil.
func (c *Calendar) Session(id string) *Config {
	for i := range c.sessions {
		if c.sessions[i].ID == id {
			return &c.sessions[i]
		}
	}
	return nil
}

// marketClosed reports the weekend halt: futures close Friday 14:00 and
// reopen Sunday 15:00 exchange time.
func (c *Calendar) marketClosed(local time.Time) bool {
	switch local.Weekday() {
	case time.Friday:
		return local.Hour() >= 14
	case time.Saturday:
		return true
	case time.Sunday:
		return local.Hour() < 15
	}
	return false
}

// reopen is the Sunday 15:00 futures open at or after local.
func (c *Calendar) reopen(local time.Time) time.Time {
	d := local
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 0, 0, 0, c.loc)
}

// Phase returns the given session's phase at now. During the weekend
// halt every session reports window-closed; without this a Saturday
// evening would look like a live window and burn the session's single
// range attempt on a market that cannot print the reference candle.
func (c *Calendar) Phase(cfg Config, now time.Time) Phase {
	local := now.In(c.loc)
	if c.marketClosed(local) {
		return PhaseWindowClosed
	}
	refClose := cfg.ReferenceTime(local, c.loc).Add(time.Hour)

	switch {
	case local.Before(refClose):
		return PhaseWaitingRange
	case local.Before(cfg.WindowStart(local, c.loc)):
		return PhaseArmed
	case local.Before(cfg.WindowEnd(local, c.loc)):
		return PhaseWindowOpen
	default:
		return PhaseWindowClosed
	}
}

// Active returns the session currently in progress (reference candle
// forming through window close) and its phase, or nil if none.
func (c *Calendar) Active(now time.Time) (*Config, Phase) {
	local := now.In(c.loc)
	for i := range c.sessions {
		cfg := &c.sessions[i]
		if local.Before(cfg.ReferenceTime(local, c.loc)) {
			continue
		}
		if p := c.Phase(*cfg, local); p != PhaseWindowClosed {
			return cfg, p
		}
	}
	return nil, PhaseWindowClosed
}

// TradingDay is the exchange-local date for now.
func (c *Calendar) TradingDay(now time.Time) Date {
	return DateOf(now, c.loc)
}

// midnightReset is the daily state rollover boundary.
func (c *Calendar) midnightReset(local time.Time) time.Time {
	t := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 0, 0, c.loc)
	if !t.After(local) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// NextEvent returns the next instant anything can happen: a reference
// hour starting, a window opening, or the midnight reset. During the
// weekend halt it jumps straight to the Sunday futures reopen.
func (c *Calendar) NextEvent(now time.Time) time.Time {
	local := now.In(c.loc)
	if c.marketClosed(local) {
		return c.reopen(local)
	}

	next := c.midnightReset(local)
	for _, s := range c.sessions {
		for _, at := range []time.Time{s.ReferenceTime(local, c.loc), s.WindowStart(local, c.loc)} {
			if !at.After(local) {
				at = at.AddDate(0, 0, 1)
			}
			if at.Before(next) {
				next = at
			}
		}
	}
	return next
}

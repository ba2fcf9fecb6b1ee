package session

import (
	"fmt"
	"sort"
	"time"
)

// Config is one trading session: a daily window with its own reference
// hour and risk limits. Immutable after load. WindowEndHour is the last
// hour included in the window: start 23, end 23 trades 23:00 through
// 23:59.
type Config struct {
	ID              string  `yaml:"id" json:"id"`
	Name            string  `yaml:"name" json:"name"`
	ReferenceHour   int     `yaml:"reference_hour" json:"reference_hour"`
	WindowStartHour int     `yaml:"window_start_hour" json:"window_start_hour"`
	WindowEndHour   int     `yaml:"window_end_hour" json:"window_end_hour"`
	TargetPoints    float64 `yaml:"target_points" json:"target_points"`
	StopPoints      float64 `yaml:"stop_points" json:"stop_points"`

	MaxTradesTotal    int `yaml:"max_trades_total" json:"max_trades_total"`
	MaxPerDirection   int `yaml:"max_per_direction" json:"max_per_direction"`
	EntryDelayMinutes int `yaml:"entry_delay_minutes" json:"entry_delay_minutes"`
}

// ApplyDefaults fills the risk limits the strategy assumes when omitted.
func (c *Config) ApplyDefaults() {
	if c.MaxTradesTotal == 0 {
		c.MaxTradesTotal = 2
	}
	if c.MaxPerDirection == 0 {
		c.MaxPerDirection = 1
	}
	if c.EntryDelayMinutes == 0 {
		c.EntryDelayMinutes = 5
	}
}

// ReferenceTime is the open of the reference candle on the given trading day.
func (c Config) ReferenceTime(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.ReferenceHour, 0, 0, 0, loc)
}

// WindowStart is the instant the trading window opens.
func (c Config) WindowStart(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.WindowStartHour, 0, 0, 0, loc)
}

// WindowEnd is the instant the trading window closes: the end of the
// (inclusive) WindowEndHour.
func (c Config) WindowEnd(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.WindowEndHour+1, 0, 0, 0, loc)
}

// EligibleFrom is the earliest instant entries are allowed: window open
// plus the configured entry delay.
func (c Config) EligibleFrom(day time.Time, loc *time.Location) time.Time {
	return c.WindowStart(day, loc).Add(time.Duration(c.EntryDelayMinutes) * time.Minute)
}

func (c Config) validate() error {
	if c.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if c.ReferenceHour < 0 || c.ReferenceHour > 23 {
		return fmt.Errorf("session %s: reference_hour %d out of range", c.ID, c.ReferenceHour)
	}
	// The reference candle must be fully closed before the window opens.
	if c.WindowStartHour < c.ReferenceHour+1 {
		return fmt.Errorf("session %s: window_start_hour %d overlaps reference candle (closes at %d:00)",
			c.ID, c.WindowStartHour, c.ReferenceHour+1)
	}
	if c.WindowEndHour < c.WindowStartHour {
		return fmt.Errorf("session %s: window_end_hour %d is before window_start_hour %d",
			c.ID, c.WindowEndHour, c.WindowStartHour)
	}
	// Windows may not span the midnight state reset.
	if c.WindowEndHour > 23 {
		return fmt.Errorf("session %s: window_end_hour %d crosses the midnight reset", c.ID, c.WindowEndHour)
	}
	if c.TargetPoints <= 0 {
		return fmt.Errorf("session %s: target_points must be positive", c.ID)
	}
	if c.StopPoints <= 0 {
		return fmt.Errorf("session %s: stop_points must be positive", c.ID)
	}
	if c.MaxTradesTotal <= 0 || c.MaxPerDirection <= 0 {
		return fmt.Errorf("session %s: trade limits must be positive", c.ID)
	}
	return nil
}

// Validate checks every session and that no two sessions overlap in time.
// Overlap is a configuration error, not a runtime condition.
func Validate(sessions []Config) error {
	if len(sessions) == 0 {
		return fmt.Errorf("at least one session is required")
	}

	seen := map[string]bool{}
	for _, s := range sessions {
		if err := s.validate(); err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate session id %q", s.ID)
		}
		seen[s.ID] = true
	}

	ordered := make([]Config, len(sessions))
	copy(ordered, sessions)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ReferenceHour < ordered[j].ReferenceHour
	})
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if cur.ReferenceHour <= prev.WindowEndHour {
			return fmt.Errorf("sessions %s and %s overlap", prev.ID, cur.ID)
		}
	}
	return nil
}

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func london() Config {
	c := Config{
		ID:              "london",
		Name:            "London",
		ReferenceHour:   22,
		WindowStartHour: 23,
		WindowEndHour:   23,
		TargetPoints:    0.2,
		StopPoints:      0.5,
	}
	c.ApplyDefaults()
	return c
}

func testCalendar(t *testing.T, sessions ...Config) *Calendar {
	t.Helper()
	cal, err := NewCalendar("America/Los_Angeles", sessions)
	require.NoError(t, err)
	return cal
}

func at(loc *time.Location, hour, min int) time.Time {
	// Tuesday, well clear of the weekend halt.
	return time.Date(2025, 3, 4, hour, min, 0, 0, loc)
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	c := Config{ID: "x"}
	c.ApplyDefaults()
	assert.Equal(t, 2, c.MaxTradesTotal)
	assert.Equal(t, 1, c.MaxPerDirection)
	assert.Equal(t, 5, c.EntryDelayMinutes)
}

func TestPhaseProgression(t *testing.T) {
	t.Parallel()

	cfg := Config{
		ID: "s", ReferenceHour: 8, WindowStartHour: 10, WindowEndHour: 12,
		TargetPoints: 1, StopPoints: 1,
	}
	cfg.ApplyDefaults()
	cal := testCalendar(t, cfg)
	loc := cal.Location()

	assert.Equal(t, PhaseWaitingRange, cal.Phase(cfg, at(loc, 7, 0)))
	// Reference candle is still forming until 09:00.
	assert.Equal(t, PhaseWaitingRange, cal.Phase(cfg, at(loc, 8, 30)))
	assert.Equal(t, PhaseArmed, cal.Phase(cfg, at(loc, 9, 0)))
	assert.Equal(t, PhaseWindowOpen, cal.Phase(cfg, at(loc, 10, 0)))
	// WindowEndHour is inclusive: 12:59 still trades, 13:00 does not.
	assert.Equal(t, PhaseWindowOpen, cal.Phase(cfg, at(loc, 12, 59)))
	assert.Equal(t, PhaseWindowClosed, cal.Phase(cfg, at(loc, 13, 0)))
}

func TestActiveSession(t *testing.T) {
	t.Parallel()

	morning := Config{ID: "am", ReferenceHour: 6, WindowStartHour: 7, WindowEndHour: 9, TargetPoints: 1, StopPoints: 1}
	evening := Config{ID: "pm", ReferenceHour: 14, WindowStartHour: 15, WindowEndHour: 17, TargetPoints: 1, StopPoints: 1}
	morning.ApplyDefaults()
	evening.ApplyDefaults()
	cal := testCalendar(t, morning, evening)
	loc := cal.Location()

	cfg, phase := cal.Active(at(loc, 8, 0))
	require.NotNil(t, cfg)
	assert.Equal(t, "am", cfg.ID)
	assert.Equal(t, PhaseWindowOpen, phase)

	cfg, phase = cal.Active(at(loc, 12, 0))
	assert.Nil(t, cfg)
	assert.Equal(t, PhaseWindowClosed, phase)

	cfg, _ = cal.Active(at(loc, 14, 30))
	require.NotNil(t, cfg)
	assert.Equal(t, "pm", cfg.ID)
}

func TestEligibleFrom(t *testing.T) {
	t.Parallel()

	cfg := london()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	day := at(loc, 0, 0)
	assert.Equal(t, at(loc, 23, 5), cfg.EligibleFrom(day, loc))
}

func TestValidateRejectsBadSessions(t *testing.T) {
	t.Parallel()

	base := london()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing id", func(c *Config) { c.ID = "" }},
		{"reference hour out of range", func(c *Config) { c.ReferenceHour = 24 }},
		{"window overlaps reference candle", func(c *Config) { c.WindowStartHour = c.ReferenceHour }},
		{"window end before start", func(c *Config) { c.WindowEndHour = c.WindowStartHour - 1 }},
		{"window crosses midnight", func(c *Config) { c.WindowEndHour = 24 }},
		{"zero target", func(c *Config) { c.TargetPoints = 0 }},
		{"negative stop", func(c *Config) { c.StopPoints = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, Validate([]Config{cfg}))
		})
	}
}

func TestValidateRejectsOverlapAndDuplicates(t *testing.T) {
	t.Parallel()

	a := Config{ID: "a", ReferenceHour: 8, WindowStartHour: 9, WindowEndHour: 12, TargetPoints: 1, StopPoints: 1}
	b := Config{ID: "b", ReferenceHour: 11, WindowStartHour: 12, WindowEndHour: 14, TargetPoints: 1, StopPoints: 1}
	a.ApplyDefaults()
	b.ApplyDefaults()

	// b's reference candle starts inside a's window.
	assert.Error(t, Validate([]Config{a, b}))

	dup := a
	assert.Error(t, Validate([]Config{a, dup}))

	assert.Error(t, Validate(nil))

	b.ReferenceHour = 13
	b.WindowStartHour = 14
	b.WindowEndHour = 16
	assert.NoError(t, Validate([]Config{a, b}))
}

func TestTradingDayAndDates(t *testing.T) {
	t.Parallel()

	cal := testCalendar(t, london())
	loc := cal.Location()

	d := cal.TradingDay(time.Date(2025, 3, 4, 23, 30, 0, 0, loc))
	assert.Equal(t, "2025-03-04", d.String())

	// A UTC instant resolves to the exchange-local date.
	utc := time.Date(2025, 3, 5, 2, 0, 0, 0, time.UTC) // 18:00 PST on the 4th
	assert.Equal(t, d, cal.TradingDay(utc))

	parsed, err := ParseDate("2025-03-04")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(d))

	_, err = ParseDate("not-a-date")
	assert.Error(t, err)
}

func TestNextEventWeekday(t *testing.T) {
	t.Parallel()

	cfg := Config{ID: "s", ReferenceHour: 8, WindowStartHour: 10, WindowEndHour: 12, TargetPoints: 1, StopPoints: 1}
	cfg.ApplyDefaults()
	cal := testCalendar(t, cfg)
	loc := cal.Location()

	// Early morning: the next event is the reference hour.
	assert.Equal(t, at(loc, 8, 0), cal.NextEvent(at(loc, 6, 0)))
	// Mid-reference-candle: the window open comes next.
	assert.Equal(t, at(loc, 10, 0), cal.NextEvent(at(loc, 8, 30)))
	// After the window: nothing before the midnight reset.
	assert.Equal(t, at(loc, 23, 59), cal.NextEvent(at(loc, 13, 0)))
}

func TestNextEventSkipsWeekend(t *testing.T) {
	t.Parallel()

	cal := testCalendar(t, london())
	loc := cal.Location()

	sundayOpen := time.Date(2025, 3, 9, 15, 0, 0, 0, loc)

	friday := time.Date(2025, 3, 7, 16, 0, 0, 0, loc)
	assert.Equal(t, sundayOpen, cal.NextEvent(friday))

	saturday := time.Date(2025, 3, 8, 10, 0, 0, 0, loc)
	assert.Equal(t, sundayOpen, cal.NextEvent(saturday))

	// Sunday before the reopen waits for it.
	sundayAM := time.Date(2025, 3, 9, 10, 0, 0, 0, loc)
	assert.Equal(t, sundayOpen, cal.NextEvent(sundayAM))

	// Friday morning still trades normally.
	fridayAM := time.Date(2025, 3, 7, 9, 0, 0, 0, loc)
	assert.True(t, cal.NextEvent(fridayAM).Before(sundayOpen))
}

func TestWeekendHaltClosesSessions(t *testing.T) {
	t.Parallel()

	cal := testCalendar(t, london())
	loc := cal.Location()

	// Saturday 23:10 would be inside the London window on a weekday; the
	// halt must win or the engine would stream and burn the session's
	// range attempt against a closed market.
	saturday := time.Date(2025, 3, 8, 23, 10, 0, 0, loc)
	assert.Equal(t, PhaseWindowClosed, cal.Phase(london(), saturday))
	cfg, phase := cal.Active(saturday)
	assert.Nil(t, cfg)
	assert.Equal(t, PhaseWindowClosed, phase)

	fridayEvening := time.Date(2025, 3, 7, 23, 10, 0, 0, loc)
	cfg, _ = cal.Active(fridayEvening)
	assert.Nil(t, cfg)

	sundayPre := time.Date(2025, 3, 9, 14, 30, 0, 0, loc)
	assert.Equal(t, PhaseWindowClosed, cal.Phase(london(), sundayPre))

	// Sunday evening trades again.
	sundayNight := time.Date(2025, 3, 9, 23, 10, 0, 0, loc)
	assert.Equal(t, PhaseWindowOpen, cal.Phase(london(), sundayNight))
	cfg, phase = cal.Active(sundayNight)
	require.NotNil(t, cfg)
	assert.Equal(t, PhaseWindowOpen, phase)
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "waiting-for-range", PhaseWaitingRange.String())
	assert.Equal(t, "armed", PhaseArmed.String())
	assert.Equal(t, "window-open", PhaseWindowOpen.String())
	assert.Equal(t, "window-closed", PhaseWindowClosed.String())
}

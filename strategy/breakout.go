// Package strategy holds the pure breakout signal logic: a reference
// range captured from one hourly candle, and a detector over closed
// 1-minute candles.
package strategy

import (
	"time"

	"github.com/rustyeddy/platinum/market"
)

// Range is the reference candle's high/low for one session. Created once
// per session when the reference candle closes; immutable thereafter.
type Range struct {
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	CapturedAt time.Time `json:"captured_at"`
}

// RangeFromCandle builds the session range from the reference candle.
func RangeFromCandle(c market.Candle, capturedAt time.Time) Range {
	return Range{High: c.High, Low: c.Low, CapturedAt: capturedAt}
}

// Signal is a directional breakout produced by Detect. Ephemeral; it is
// only persisted as part of a Trade once the risk gate accepts it.
type Signal struct {
	Direction    market.Direction
	TriggerPrice float64
	CandleTime   time.Time
}

// Detect applies the breakout rule to a closed candle. A close strictly
// above the range high is a long; strictly below the low, a short. A
// close exactly on a boundary is not a breakout, so a flat candle sitting
// on the level never triggers.
func Detect(c market.Candle, r Range) (Signal, bool) {
	switch {
	case c.Close > r.High:
		return Signal{Direction: market.Long, TriggerPrice: c.Close, CandleTime: c.Time}, true
	case c.Close < r.Low:
		return Signal{Direction: market.Short, TriggerPrice: c.Close, CandleTime: c.Time}, true
	}
	return Signal{}, false
}

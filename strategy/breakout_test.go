package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/platinum/market"
)

func candle(close float64) market.Candle {
	return market.Candle{
		Open:  close,
		High:  close,
		Low:   close,
		Close: close,
		Time:  time.Date(2025, 3, 4, 23, 5, 0, 0, time.UTC),
	}
}

func TestDetectLongAboveHigh(t *testing.T) {
	t.Parallel()

	r := Range{High: 100, Low: 98}

	sig, ok := Detect(candle(100.5), r)
	assert.True(t, ok)
	assert.Equal(t, market.Long, sig.Direction)
	assert.Equal(t, 100.5, sig.TriggerPrice)
}

func TestDetectShortBelowLow(t *testing.T) {
	t.Parallel()

	r := Range{High: 100, Low: 98}

	sig, ok := Detect(candle(97.5), r)
	assert.True(t, ok)
	assert.Equal(t, market.Short, sig.Direction)
	assert.Equal(t, 97.5, sig.TriggerPrice)
}

func TestDetectInsideRangeNoSignal(t *testing.T) {
	t.Parallel()

	r := Range{High: 100, Low: 98}

	for _, close := range []float64{98.01, 99, 99.99} {
		_, ok := Detect(candle(close), r)
		assert.False(t, ok, "close %.2f is inside the range", close)
	}
}

func TestDetectBoundaryIsNotABreakout(t *testing.T) {
	t.Parallel()

	r := Range{High: 100, Low: 98}

	// Strict inequality only: a flat candle sitting exactly on a level
	// must not trigger.
	_, ok := Detect(candle(100), r)
	assert.False(t, ok)

	_, ok = Detect(candle(98), r)
	assert.False(t, ok)
}

func TestRangeFromCandle(t *testing.T) {
	t.Parallel()

	c := market.Candle{Open: 99, High: 100.25, Low: 97.75, Close: 98.5}
	at := time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC)

	r := RangeFromCandle(c, at)
	assert.Equal(t, 100.25, r.High)
	assert.Equal(t, 97.75, r.Low)
	assert.Equal(t, at, r.CapturedAt)
}

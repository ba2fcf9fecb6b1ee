package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandleCloseTime(t *testing.T) {
	t.Parallel()

	open := time.Date(2025, 3, 4, 22, 0, 0, 0, time.UTC)
	c := Candle{Open: 99, High: 100, Low: 98, Close: 99.5, Time: open}

	assert.Equal(t, open.Add(time.Hour), c.CloseTime(H1))
	assert.Equal(t, open.Add(time.Minute), c.CloseTime(M1))
}

func TestCandleValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Candle{Open: 1, High: 2, Low: 0.5, Close: 1.5}.Valid())
	// Zero-filled placeholder bars are rejected.
	assert.False(t, Candle{}.Valid())
	assert.False(t, Candle{Open: 1, High: 2, Close: 1.5}.Valid())
}

func TestDirectionHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, Long.Valid())
	assert.True(t, Short.Valid())
	assert.False(t, Direction("SIDEWAYS").Valid())
}

func TestBracketPrices(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 102.0, Long.TargetFrom(100, 2))
	assert.Equal(t, 99.0, Long.StopFrom(100, 1))
	assert.Equal(t, 98.0, Short.TargetFrom(100, 2))
	assert.Equal(t, 101.0, Short.StopFrom(100, 1))
}

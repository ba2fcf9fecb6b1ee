package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/platinum/market"
	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/strategy"
	"github.com/rustyeddy/platinum/trade"
)

func terminalTrade(dir market.Direction) trade.Trade {
	now := time.Now()
	tr := trade.New("london", dir, 100.5, now)
	_ = tr.Transition(trade.StatusEntrySubmitted, "", now)
	_ = tr.Transition(trade.StatusOpen, "", now)
	_ = tr.Transition(trade.StatusClosedTarget, trade.ExitTarget, now)
	return tr
}

func TestAddTradeEnforcesBudget(t *testing.T) {
	t.Parallel()

	ss := &SessionState{}
	require.NoError(t, ss.AddTrade(terminalTrade(market.Long), 2))
	require.NoError(t, ss.AddTrade(terminalTrade(market.Short), 2))
	assert.Equal(t, 2, ss.TradesUsed())

	err := ss.AddTrade(trade.New("london", market.Long, 101, time.Now()), 2)
	assert.Error(t, err)
}

func TestAddTradeEnforcesOnePerDirection(t *testing.T) {
	t.Parallel()

	ss := &SessionState{}
	require.NoError(t, ss.AddTrade(terminalTrade(market.Long), 2))

	// A losing long does not buy another long attempt.
	err := ss.AddTrade(trade.New("london", market.Long, 101, time.Now()), 2)
	assert.Error(t, err)
	assert.True(t, ss.DirectionUsed(market.Long))
	assert.False(t, ss.DirectionUsed(market.Short))
}

func TestAddTradeRejectsConcurrentOpen(t *testing.T) {
	t.Parallel()

	ss := &SessionState{}
	require.NoError(t, ss.AddTrade(trade.New("london", market.Long, 100.5, time.Now()), 2))
	require.NotNil(t, ss.OpenTrade())

	err := ss.AddTrade(trade.New("london", market.Short, 97.5, time.Now()), 2)
	assert.Error(t, err)
}

func TestExhausted(t *testing.T) {
	t.Parallel()

	ss := &SessionState{}
	assert.False(t, ss.Exhausted(2))

	require.NoError(t, ss.AddTrade(terminalTrade(market.Long), 2))
	assert.False(t, ss.Exhausted(2))

	require.NoError(t, ss.AddTrade(terminalTrade(market.Short), 2))
	assert.True(t, ss.Exhausted(2))
}

func TestDayLookups(t *testing.T) {
	t.Parallel()

	day := NewDay(session.Date{Year: 2025, Month: 3, Day: 4})
	assert.Equal(t, "2025-03-04", day.Date)

	tr := trade.New("london", market.Long, 100.5, time.Now())
	tr.EntryOrderID = "E-1"
	tr.TargetOrderID = "T-1"
	tr.StopOrderID = "S-1"
	require.NoError(t, day.Session("london").AddTrade(tr, 2))

	got, sid := day.FindTrade(tr.ID)
	require.NotNil(t, got)
	assert.Equal(t, "london", sid)

	for _, oid := range []string{"E-1", "T-1", "S-1"} {
		got, sid = day.FindByOrderID(oid)
		require.NotNil(t, got, oid)
		assert.Equal(t, tr.ID, got.ID)
		assert.Equal(t, "london", sid)
	}

	got, _ = day.FindByOrderID("nope")
	assert.Nil(t, got)

	assert.Len(t, day.NonTerminal(), 1)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	day := NewDay(session.Date{Year: 2025, Month: 3, Day: 4})
	ss := day.Session("london")
	ss.Range = &strategy.Range{High: 100, Low: 98}
	require.NoError(t, ss.AddTrade(trade.New("london", market.Long, 100.5, time.Now()), 2))

	cp := day.Clone()
	cp.Session("london").Range.High = 999
	cp.Session("london").Trades[0].Status = trade.StatusFailed

	assert.Equal(t, 100.0, ss.Range.High)
	assert.Equal(t, trade.StatusPendingEntry, ss.Trades[0].Status)
}

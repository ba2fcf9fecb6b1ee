package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/platinum/market"
	"github.com/rustyeddy/platinum/trade"
)

func testJournal(t *testing.T) *SQLite {
	t.Helper()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleTrade(opened time.Time) trade.Trade {
	tr := trade.New("london", market.Long, 100.5, opened)
	_ = tr.Transition(trade.StatusEntrySubmitted, "", opened)
	_ = tr.Transition(trade.StatusOpen, "", opened)
	tr.EntryPrice = 100.6
	tr.TargetPrice = 100.8
	tr.StopPrice = 100.1
	_ = tr.Transition(trade.StatusClosedTarget, trade.ExitTarget, opened.Add(20*time.Minute))
	return tr
}

func TestRecordAndList(t *testing.T) {
	t.Parallel()

	j := testJournal(t)
	opened := time.Date(2025, 3, 4, 23, 6, 0, 0, time.UTC)
	tr := sampleTrade(opened)
	require.NoError(t, j.Record(tr))

	trades, err := j.List(10)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, "london", got.SessionID)
	assert.Equal(t, market.Long, got.Direction)
	assert.Equal(t, trade.StatusClosedTarget, got.Status)
	assert.Equal(t, 100.6, got.EntryPrice)
	assert.Equal(t, trade.ExitTarget, got.ExitReason)
	assert.True(t, got.OpenedAt.Equal(opened))
}

func TestRecordIsIdempotent(t *testing.T) {
	t.Parallel()

	j := testJournal(t)
	tr := sampleTrade(time.Date(2025, 3, 4, 23, 6, 0, 0, time.UTC))

	require.NoError(t, j.Record(tr))
	require.NoError(t, j.Record(tr)) // replayed after a restart

	trades, err := j.List(10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	j := testJournal(t)
	base := time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.Record(sampleTrade(base.Add(time.Duration(i)*time.Minute))))
	}

	trades, err := j.List(2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.True(t, trades[0].OpenedAt.After(trades[1].OpenedAt))
}

func TestNopJournal(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.Record(trade.Trade{}))
	trades, err := j.List(5)
	assert.NoError(t, err)
	assert.Empty(t, trades)
	assert.NoError(t, j.Close())
}

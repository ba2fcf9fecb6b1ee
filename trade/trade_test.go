package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/platinum/market"
)

func TestNewTradeIsPendingEntry(t *testing.T) {
	t.Parallel()

	opened := time.Date(2025, 3, 4, 23, 6, 0, 0, time.UTC)
	tr := New("london", market.Long, 100.5, opened)

	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, StatusPendingEntry, tr.Status)
	assert.Equal(t, opened, tr.OpenedAt)
	assert.False(t, tr.Terminal())
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusClosedTarget, StatusClosedStop, StatusClosedManual, StatusFailed} {
		assert.True(t, s.Terminal(), "%s", s)
	}
	for _, s := range []Status{StatusPendingEntry, StatusEntrySubmitted, StatusOpen} {
		assert.False(t, s.Terminal(), "%s", s)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	t.Parallel()

	assert.True(t, CanTransition(StatusPendingEntry, StatusEntrySubmitted))
	assert.True(t, CanTransition(StatusPendingEntry, StatusFailed))
	assert.True(t, CanTransition(StatusEntrySubmitted, StatusOpen))
	assert.True(t, CanTransition(StatusEntrySubmitted, StatusFailed))
	assert.True(t, CanTransition(StatusOpen, StatusClosedTarget))
	assert.True(t, CanTransition(StatusOpen, StatusClosedStop))
	assert.True(t, CanTransition(StatusOpen, StatusClosedManual))

	// No transitions leave a terminal status, and none skip open.
	assert.False(t, CanTransition(StatusPendingEntry, StatusOpen))
	assert.False(t, CanTransition(StatusOpen, StatusFailed))
	assert.False(t, CanTransition(StatusClosedStop, StatusOpen))
	assert.False(t, CanTransition(StatusFailed, StatusEntrySubmitted))
}

func TestTransitionStampsTerminalFields(t *testing.T) {
	t.Parallel()

	tr := New("london", market.Short, 97.5, time.Now())
	assert.NoError(t, tr.Transition(StatusEntrySubmitted, "", time.Now()))
	assert.NoError(t, tr.Transition(StatusOpen, "", time.Now()))

	closed := time.Date(2025, 3, 4, 23, 30, 0, 0, time.UTC)
	assert.NoError(t, tr.Transition(StatusClosedStop, ExitStop, closed))
	assert.Equal(t, closed, tr.ClosedAt)
	assert.Equal(t, ExitStop, tr.ExitReason)

	err := tr.Transition(StatusClosedTarget, ExitTarget, time.Now())
	assert.Error(t, err)
}

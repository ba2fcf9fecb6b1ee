// Package notify pushes lifecycle events to a side channel (chat alerts).
// Delivery is best-effort: failures are logged and never fatal to the
// trading core.
package notify

import (
	"log/slog"

	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/strategy"
	"github.com/rustyeddy/platinum/trade"
)

// Notifier receives lifecycle events. Implementations must not block the
// caller for long and must swallow their own errors.
type Notifier interface {
	TradeOpened(sess session.Config, t trade.Trade)
	TradeClosed(sess session.Config, t trade.Trade)
	SessionArmed(sess session.Config, r strategy.Range)
	SessionSkipped(sess session.Config, reason string)
	DailyReset(date string)
	Error(msg string)
}

// Log writes events to the structured log only. Used when no chat sink
// is configured, and as the fallback half of Multi.
type Log struct {
	L *slog.Logger
}

func (n Log) TradeOpened(sess session.Config, t trade.Trade) {
	n.L.Info("trade opened", "session", sess.ID, "trade", t.ID,
		"direction", t.Direction, "entry", t.EntryPrice,
		"target", t.TargetPrice, "stop", t.StopPrice)
}

func (n Log) TradeClosed(sess session.Config, t trade.Trade) {
	n.L.Info("trade closed", "session", sess.ID, "trade", t.ID,
		"status", t.Status, "reason", t.ExitReason)
}

func (n Log) SessionArmed(sess session.Config, r strategy.Range) {
	n.L.Info("session armed", "session", sess.ID, "high", r.High, "low", r.Low)
}

func (n Log) SessionSkipped(sess session.Config, reason string) {
	n.L.Warn("session skipped", "session", sess.ID, "reason", reason)
}

func (n Log) DailyReset(date string) {
	n.L.Info("daily reset", "date", date)
}

func (n Log) Error(msg string) {
	n.L.Error("bot error", "msg", msg)
}

// Multi fans events out to several sinks.
type Multi []Notifier

func (m Multi) TradeOpened(s session.Config, t trade.Trade) {
	for _, n := range m {
		n.TradeOpened(s, t)
	}
}

func (m Multi) TradeClosed(s session.Config, t trade.Trade) {
	for _, n := range m {
		n.TradeClosed(s, t)
	}
}

func (m Multi) SessionArmed(s session.Config, r strategy.Range) {
	for _, n := range m {
		n.SessionArmed(s, r)
	}
}

func (m Multi) SessionSkipped(s session.Config, reason string) {
	for _, n := range m {
		n.SessionSkipped(s, reason)
	}
}

func (m Multi) DailyReset(date string) {
	for _, n := range m {
		n.DailyReset(date)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

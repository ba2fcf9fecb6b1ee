package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/platinum/broker"
	"github.com/rustyeddy/platinum/market"
	"github.com/rustyeddy/platinum/metrics"
	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/state"
	"github.com/rustyeddy/platinum/strategy"
	"github.com/rustyeddy/platinum/trade"
)

// handleCandle evaluates one closed 1-minute candle against every
// session currently in its trading window.
func (e *Engine) handleCandle(ctx context.Context, c market.Candle) error {
	metrics.CandlesTotal.Inc()

	if !c.Valid() {
		return nil
	}

	now := e.now()
	if age := now.Sub(c.CloseTime(market.M1)); age > staleCandleAge {
		e.log.Info("stale candle, processing anyway", "age", age.Round(time.Second))
	}

	if err := e.rolloverIfNeeded(now); err != nil {
		return err
	}

	for _, cfg := range e.cal.Sessions() {
		phase := e.cal.Phase(cfg, now)
		if phase != session.PhaseWindowOpen {
			continue
		}

		ss := e.day.Session(cfg.ID)
		if ss.Range == nil {
			// Not armed: capture pending or the session was skipped.
			continue
		}
		// Detector is torn down once the session has nothing left to do.
		if ss.Exhausted(cfg.MaxTradesTotal) || ss.OpenTrade() != nil {
			continue
		}

		sig, ok := strategy.Detect(c, *ss.Range)
		if !ok {
			continue
		}
		metrics.SignalsTotal.WithLabelValues(string(sig.Direction)).Inc()

		d := e.gate.Admit(sig, cfg, ss, phase, now)
		if !d.Allowed {
			e.log.Debug("signal rejected", "session", cfg.ID,
				"direction", sig.Direction, "reason", d.Reason())
			continue
		}

		if err := e.openTrade(ctx, cfg, ss, sig); err != nil {
			return err
		}
	}
	return nil
}

// openTrade turns an admitted signal into a pending-entry trade and
// submits the bracket off the loop goroutine. The trade is persisted
// before the order leaves the process, so a crash between decision and
// placement is recoverable; the submission result re-enters the loop
// through the actions channel, keeping candle intake unblocked while
// the order is in flight.
func (e *Engine) openTrade(ctx context.Context, cfg session.Config, ss *state.SessionState, sig strategy.Signal) error {
	t := trade.New(cfg.ID, sig.Direction, sig.TriggerPrice, e.now())
	if err := ss.AddTrade(t, cfg.MaxTradesTotal); err != nil {
		// Gate and AddTrade enforce the same invariants; disagreement
		// means a logic bug, not a tradable condition.
		e.log.Warn("trade refused by session state", "err", err)
		return nil
	}
	if err := e.persist(); err != nil {
		return err
	}

	e.log.Info("placing bracket order", "trade", t.ID, "session", cfg.ID,
		"direction", sig.Direction, "trigger", sig.TriggerPrice)

	req := broker.BracketOrderRequest{
		Symbol:       e.cfg.Symbol,
		Direction:    sig.Direction,
		Quantity:     e.cfg.Quantity,
		TargetPoints: cfg.TargetPoints,
		StopPoints:   cfg.StopPoints,
		ClientRef:    t.ID,
	}
	go func() {
		octx, cancel := context.WithTimeout(ctx, orderCallTimeout)
		defer cancel()
		h, err := e.brk.PlaceBracketOrder(octx, req)
		e.do(func() error { return e.placementResult(cfg, t.ID, h, err) })
	}()
	return nil
}

// placementResult applies a finished bracket submission on the loop
// goroutine.
func (e *Engine) placementResult(cfg session.Config, tradeID string, h broker.OrderHandle, err error) error {
	tp, _ := e.day.FindTrade(tradeID)
	if tp == nil {
		// The day rolled over mid-submission; nothing tracks these
		// orders anymore, so pull the entry back.
		if err == nil {
			e.cancelAsync(h.EntryID)
		}
		return nil
	}
	if tp.Status != trade.StatusPendingEntry {
		return nil
	}

	if err != nil {
		metrics.OrderRejects.Inc()
		if terr := tp.Transition(trade.StatusFailed, trade.ExitRejected, e.now()); terr != nil {
			return terr
		}
		if perr := e.persist(); perr != nil {
			return perr
		}
		e.finalize(cfg, *tp)
		e.ntf.Error(fmt.Sprintf("trade error (%s %s): %v", cfg.Name, tp.Direction, err))
		// The other direction remains eligible; the session continues.
		return nil
	}

	tp.EntryOrderID = h.EntryID
	tp.TargetOrderID = h.TargetID
	tp.StopOrderID = h.StopID
	if terr := tp.Transition(trade.StatusEntrySubmitted, "", e.now()); terr != nil {
		return terr
	}
	if perr := e.persist(); perr != nil {
		return perr
	}

	e.scheduleEntryTimeout(tp.ID)
	return nil
}

// scheduleEntryTimeout bounds the wait for an entry fill. The check
// re-enters the loop goroutine; a fill that landed first makes it a no-op.
func (e *Engine) scheduleEntryTimeout(tradeID string) {
	time.AfterFunc(e.cfg.EntryFillTimeout.Std(), func() {
		e.do(func() error { return e.entryTimeout(tradeID) })
	})
}

// entryTimeout fails a trade whose entry never filled, then cancels the
// order. Persist first: the failure decision must survive a crash that
// happens mid-cancel.
func (e *Engine) entryTimeout(tradeID string) error {
	t, sid := e.day.FindTrade(tradeID)
	if t == nil || t.Status != trade.StatusEntrySubmitted {
		return nil
	}

	e.log.Warn("entry fill timeout", "trade", t.ID, "order", t.EntryOrderID)
	if err := t.Transition(trade.StatusFailed, trade.ExitEntryTimeout, e.now()); err != nil {
		return err
	}
	if err := e.persist(); err != nil {
		return err
	}

	e.cancelAsync(t.EntryOrderID)

	cfg := e.cal.Session(sid)
	if cfg != nil {
		e.finalize(*cfg, *t)
		e.ntf.Error(fmt.Sprintf("entry timeout (%s %s) - order cancelled", cfg.Name, t.Direction))
	}
	return nil
}

// handleOrderEvent applies one broker status update to the owning trade.
// Replays of already-applied events are no-ops, which is what makes
// restart recovery idempotent.
func (e *Engine) handleOrderEvent(ev broker.OrderEvent) error {
	t, sid := e.day.FindByOrderID(ev.OrderID)
	if t == nil {
		e.log.Debug("event for unknown order", "order", ev.OrderID, "status", ev.Status)
		return nil
	}
	cfg := e.cal.Session(sid)
	if cfg == nil {
		e.log.Warn("event for unconfigured session", "session", sid, "order", ev.OrderID)
		return nil
	}

	switch {
	case ev.OrderID == t.EntryOrderID:
		return e.applyEntryEvent(*cfg, t, ev)
	case ev.OrderID == t.TargetOrderID && ev.Status == broker.OrderFilled:
		return e.closeTrade(*cfg, t, trade.StatusClosedTarget, trade.ExitTarget, t.StopOrderID)
	case ev.OrderID == t.StopOrderID && ev.Status == broker.OrderFilled:
		return e.closeTrade(*cfg, t, trade.StatusClosedStop, trade.ExitStop, t.TargetOrderID)
	case ev.Status == broker.OrderRejected:
		return e.bracketRejected(*cfg, t)
	default:
		// Bracket leg cancellations are OCO bookkeeping.
		return nil
	}
}

// bracketRejected handles the broker refusing a protective leg after
// the entry filled. The position may be running with only one working
// exit, or none; that cannot be repaired automatically, so the trade is
// closed out on our books and flagged for manual intervention. The
// surviving leg is left working.
func (e *Engine) bracketRejected(cfg session.Config, t *trade.Trade) error {
	if t.Status != trade.StatusOpen {
		return nil
	}

	e.log.Error("bracket leg rejected on open trade", "trade", t.ID)
	if err := t.Transition(trade.StatusClosedManual, trade.ExitRejected, e.now()); err != nil {
		return err
	}
	if err := e.persist(); err != nil {
		return err
	}

	metrics.TradesClosed.WithLabelValues(t.SessionID, trade.ExitRejected).Inc()
	metrics.OpenTrades.Dec()
	e.finalize(cfg, *t)
	e.ntf.Error(fmt.Sprintf("bracket leg rejected (%s %s) - position may be unprotected, close it manually", cfg.Name, t.Direction))
	return nil
}

func (e *Engine) applyEntryEvent(cfg session.Config, t *trade.Trade, ev broker.OrderEvent) error {
	switch ev.Status {
	case broker.OrderFilled:
		if t.Status != trade.StatusEntrySubmitted {
			return nil
		}
		t.EntryPrice = ev.FillPrice
		t.TargetPrice = t.Direction.TargetFrom(ev.FillPrice, cfg.TargetPoints)
		t.StopPrice = t.Direction.StopFrom(ev.FillPrice, cfg.StopPoints)
		if err := t.Transition(trade.StatusOpen, "", e.now()); err != nil {
			return err
		}
		if err := e.persist(); err != nil {
			return err
		}
		metrics.TradesOpened.WithLabelValues(t.SessionID, string(t.Direction)).Inc()
		metrics.OpenTrades.Inc()
		e.ntf.TradeOpened(cfg, *t)
		return nil

	case broker.OrderRejected, broker.OrderCancelled:
		if t.Terminal() {
			return nil // we already failed it (entry timeout path)
		}
		reason := trade.ExitRejected
		if ev.Status == broker.OrderCancelled {
			reason = trade.ExitEntryTimeout
		}
		if err := t.Transition(trade.StatusFailed, reason, e.now()); err != nil {
			return err
		}
		if err := e.persist(); err != nil {
			return err
		}
		e.finalize(cfg, *t)
		e.ntf.Error(fmt.Sprintf("entry %s (%s %s)", ev.Status, cfg.Name, t.Direction))
		return nil
	}
	return nil
}

// closeTrade resolves an open trade to a terminal close and reconciles
// the OCO sibling. The broker should have cancelled it already; the
// extra cancel is idempotent and covers a broker-side cancel that never
// landed (notably across restarts).
func (e *Engine) closeTrade(cfg session.Config, t *trade.Trade, st trade.Status, reason, siblingOrderID string) error {
	if t.Status != trade.StatusOpen {
		return nil // replayed fill for an already-closed trade
	}

	if err := t.Transition(st, reason, e.now()); err != nil {
		return err
	}
	if err := e.persist(); err != nil {
		return err
	}

	metrics.TradesClosed.WithLabelValues(t.SessionID, reason).Inc()
	metrics.OpenTrades.Dec()
	e.finalize(cfg, *t)
	e.ntf.TradeClosed(cfg, *t)

	e.cancelAsync(siblingOrderID)
	return nil
}

// finalize records a terminal trade in the journal. The journal is an
// audit artifact; failures are logged, never escalated.
func (e *Engine) finalize(cfg session.Config, t trade.Trade) {
	if err := e.jrnl.Record(t); err != nil {
		e.log.Error("journal write failed", "trade", t.ID, "err", err)
	}
}

// cancelAsync requests an order cancel off the loop goroutine. The
// result only gets logged: the owning trade is already terminal.
func (e *Engine) cancelAsync(orderID string) {
	if orderID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), orderCallTimeout)
		defer cancel()
		if err := e.brk.CancelOrder(ctx, orderID); err != nil {
			e.log.Warn("cancel failed", "order", orderID, "err", err)
		}
	}()
}

// maybeCaptureRanges starts a reference-range fetch for every session
// whose reference candle has closed and which has no range yet. Each
// session gets exactly one attempt per day; a failed attempt skips the
// session rather than risking a stale breakout basis.
func (e *Engine) maybeCaptureRanges(ctx context.Context) {
	now := e.now()
	loc := e.cal.Location()

	for _, cfg := range e.cal.Sessions() {
		phase := e.cal.Phase(cfg, now)
		if phase != session.PhaseArmed && phase != session.PhaseWindowOpen {
			continue
		}

		ss := e.day.Session(cfg.ID)
		if ss.Range != nil || ss.RangeAttempted || e.fetching[cfg.ID] {
			continue
		}
		e.fetching[cfg.ID] = true

		refTime := cfg.ReferenceTime(now.In(loc), loc)
		e.log.Info("fetching reference range", "session", cfg.ID, "ref", refTime.Format("15:04"))

		go func(cfg session.Config, refTime time.Time) {
			fctx, cancel := context.WithTimeout(ctx, e.cfg.RangeFetchTimeout.Std())
			defer cancel()
			c, err := e.brk.FetchCandle(fctx, e.cfg.Symbol, market.H1, refTime)
			e.do(func() error { return e.rangeResult(cfg, c, err) })
		}(cfg, refTime)
	}
}

// rangeResult applies a finished range fetch on the loop goroutine.
func (e *Engine) rangeResult(cfg session.Config, c market.Candle, err error) error {
	delete(e.fetching, cfg.ID)

	ss := e.day.Session(cfg.ID)
	if ss.Range != nil || ss.RangeAttempted {
		return nil
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cycle teardown aborted the fetch; it was not a data
			// failure, so the session keeps its attempt.
			return nil
		}
		ss.RangeAttempted = true
		if perr := e.persist(); perr != nil {
			return perr
		}
		e.log.Warn("reference range unavailable, skipping session", "session", cfg.ID, "err", err)
		e.ntf.SessionSkipped(cfg, fmt.Sprintf("reference range unavailable: %v", err))
		return nil
	}

	r := strategy.RangeFromCandle(c, e.now())
	ss.Range = &r
	ss.RangeAttempted = true
	if perr := e.persist(); perr != nil {
		return perr
	}

	e.log.Info("session armed", "session", cfg.ID, "high", r.High, "low", r.Low)
	e.ntf.SessionArmed(cfg, r)
	return nil
}

// reconcile repairs recovered state after a restart.
//
// A pending-entry trade means we crashed between persisting the decision
// and receiving a broker acknowledgement; with no order ids to check, it
// is failed rather than resubmitted — the direction stays consumed, so
// the restart can never duplicate the attempt. An entry-submitted trade
// resumes its bounded fill wait; an open trade just waits for bracket
// events, which apply idempotently.
func (e *Engine) reconcile() error {
	for _, t := range e.day.NonTerminal() {
		switch t.Status {
		case trade.StatusPendingEntry:
			e.log.Warn("recovered unsubmitted trade, failing it", "trade", t.ID)
			if err := t.Transition(trade.StatusFailed, trade.ExitUnsubmitted, e.now()); err != nil {
				return err
			}
			if cfg := e.cal.Session(t.SessionID); cfg != nil {
				e.finalize(*cfg, *t)
			}
			e.ntf.Error(fmt.Sprintf("recovered trade %s had no submitted order; marked failed - verify the account", t.ID))

		case trade.StatusEntrySubmitted:
			e.log.Info("recovered trade awaiting entry fill", "trade", t.ID)
			e.scheduleEntryTimeout(t.ID)

		case trade.StatusOpen:
			e.log.Info("recovered open trade, awaiting bracket events", "trade", t.ID)
		}
	}
	return nil
}

// Package engine runs the session/trade lifecycle state machine: range
// capture, breakout detection, trade admission, bracket order tracking,
// and crash-safe persistence.
//
// All state mutations happen on one goroutine, the cycle loop. Broker
// I/O that must not block candle intake (range fetches, cancels) runs in
// short-lived goroutines whose completions re-enter the loop through the
// actions channel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/platinum/broker"
	"github.com/rustyeddy/platinum/config"
	"github.com/rustyeddy/platinum/journal"
	"github.com/rustyeddy/platinum/market"
	"github.com/rustyeddy/platinum/metrics"
	"github.com/rustyeddy/platinum/notify"
	"github.com/rustyeddy/platinum/risk"
	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/state"
	"github.com/rustyeddy/platinum/trade"
)

// errPersist marks a failed state write. The state file is the single
// point of truth; if it cannot be written the process must stop rather
// than act on decisions it cannot remember.
var errPersist = errors.New("persist state")

const (
	maxConsecutiveErrors = 10
	baseBackoff          = 30 * time.Second
	maxBackoff           = 5 * time.Minute
	orderCallTimeout     = 30 * time.Second
	staleCandleAge       = 2 * time.Minute
)

// Params wires an Engine.
type Params struct {
	Config   *config.Config
	Calendar *session.Calendar
	Broker   broker.Broker
	Store    *state.Store
	Journal  journal.Journal
	Notifier notify.Notifier
	Logger   *slog.Logger

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

type Engine struct {
	cfg   *config.Config
	cal   *session.Calendar
	brk   broker.Broker
	store *state.Store
	jrnl  journal.Journal
	ntf   notify.Notifier
	gate  risk.Gate
	log   *slog.Logger
	now   func() time.Time

	day state.Day

	// actions carries completions of async broker calls back onto the
	// loop goroutine; no two transitions ever run concurrently.
	actions chan func() error

	// fetching guards against duplicate in-flight range fetches.
	fetching map[string]bool
}

func New(p Params) *Engine {
	e := &Engine{
		cfg:      p.Config,
		cal:      p.Calendar,
		brk:      p.Broker,
		store:    p.Store,
		jrnl:     p.Journal,
		ntf:      p.Notifier,
		gate:     risk.Gate{Loc: p.Calendar.Location()},
		log:      p.Logger,
		now:      p.Clock,
		actions:  make(chan func() error, 64),
		fetching: map[string]bool{},
	}
	if e.jrnl == nil {
		e.jrnl = journal.Nop{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.ntf == nil {
		e.ntf = notify.Log{L: e.log}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Run is the top-level loop: load state, then repeat monitor cycles with
// exponential backoff on failure. Returns on ctx cancellation, on an
// authentication failure, on an unwritable state file, or after too many
// consecutive errors.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.loadState(); err != nil {
		return err
	}

	consecutive := 0
	for {
		err := e.runCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			consecutive = 0
			continue
		}
		if broker.IsAuth(err) || errors.Is(err, errPersist) {
			e.ntf.Error(err.Error())
			return err
		}

		consecutive++
		e.log.Error("monitor cycle failed", "err", err, "consecutive", consecutive)
		if consecutive == 1 || consecutive%3 == 0 {
			e.ntf.Error(fmt.Sprintf("bot error #%d: %v", consecutive, err))
		}
		if consecutive >= maxConsecutiveErrors {
			e.ntf.Error(fmt.Sprintf("stopped after %d consecutive errors", consecutive))
			return fmt.Errorf("stopped after %d consecutive errors: %w", consecutive, err)
		}

		wait := baseBackoff << (consecutive - 1)
		if wait > maxBackoff {
			wait = maxBackoff
		}
		e.log.Info("backing off", "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// loadState restores today's progress from disk. Corrupt or stale files
// yield a fresh day; corruption is surfaced loudly because an empty
// state risks re-attempting trades the lost file knew about.
func (e *Engine) loadState() error {
	today := e.cal.TradingDay(e.now())
	day, err := e.store.Load(today)
	e.day = day

	switch {
	case errors.Is(err, state.ErrCorrupt):
		e.log.Error("state file corrupt, starting empty", "err", err)
		e.ntf.Error("state file corrupt - starting with empty state; manual position check advised")
	case errors.Is(err, state.ErrAbandonedTrade):
		e.log.Warn("discarded stale state with a non-terminal trade", "err", err)
		e.ntf.Error("previous day's state held an unresolved trade; check the account")
	case err != nil:
		return fmt.Errorf("load state: %w", err)
	}

	if err := e.reconcile(); err != nil {
		return err
	}
	metrics.OpenTrades.Set(float64(len(e.day.NonTerminal())))
	return e.persist()
}

// shouldMonitor reports whether a stream is worth holding open: a
// session is in progress or a trade is still in flight.
func (e *Engine) shouldMonitor(now time.Time) bool {
	if len(e.day.NonTerminal()) > 0 {
		return true
	}
	active, _ := e.cal.Active(now)
	return active != nil
}

// runCycle holds one streaming connection: subscribe, process candle and
// order events, tear down on idle timeout or when the day is done.
func (e *Engine) runCycle(ctx context.Context) error {
	now := e.now()
	if err := e.rolloverIfNeeded(now); err != nil {
		return err
	}

	if !e.shouldMonitor(now) {
		next := e.cal.NextEvent(now).Add(30 * time.Second)
		wait := next.Sub(now)
		if wait > time.Minute {
			e.log.Info("no active session, sleeping", "until", next.Format(time.RFC3339))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			return nil
		}
	}

	if err := e.brk.Authenticate(ctx); err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	candles, err := e.brk.StreamCandles(streamCtx, e.cfg.Symbol, market.M1)
	if err != nil {
		return fmt.Errorf("candle stream: %w", err)
	}
	events, err := e.brk.OrderEvents(streamCtx)
	if err != nil {
		return fmt.Errorf("order events: %w", err)
	}

	e.log.Info("monitoring", "symbol", e.cfg.Symbol)

	rangeTicker := time.NewTicker(time.Minute)
	defer rangeTicker.Stop()
	e.maybeCaptureRanges(streamCtx)

	idle := time.NewTimer(e.cfg.MaxIdle.Std())
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fn := <-e.actions:
			if err := fn(); err != nil {
				return err
			}

		case c, ok := <-candles:
			if !ok {
				metrics.StreamReconnects.Inc()
				return fmt.Errorf("candle stream closed")
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(e.cfg.MaxIdle.Std())

			if err := e.handleCandle(streamCtx, c); err != nil {
				return err
			}
			if !e.shouldMonitor(e.now()) {
				e.log.Info("sessions complete, closing stream")
				return nil
			}

		case ev, ok := <-events:
			if !ok {
				metrics.StreamReconnects.Inc()
				return fmt.Errorf("order event stream closed")
			}
			if err := e.handleOrderEvent(ev); err != nil {
				return err
			}

		case <-rangeTicker.C:
			if err := e.rolloverIfNeeded(e.now()); err != nil {
				return err
			}
			e.maybeCaptureRanges(streamCtx)

		case <-idle.C:
			metrics.StreamReconnects.Inc()
			e.ntf.Error(fmt.Sprintf("no candles for %s - reconnecting", e.cfg.MaxIdle.Std()))
			return nil
		}
	}
}

// do schedules fn onto the loop goroutine.
func (e *Engine) do(fn func() error) {
	e.actions <- fn
}

// persist atomically replaces the state file with a snapshot of today.
// Failure is escalated: no action may be taken on an unpersisted decision.
func (e *Engine) persist() error {
	if err := e.store.Save(e.day.Clone()); err != nil {
		return fmt.Errorf("%w: %v", errPersist, err)
	}
	return nil
}

// rolloverIfNeeded resets state at the exchange-local date boundary. A
// trade still in flight at the reset is closed out on our books, journaled,
// and surfaced loudly before the day is replaced - it must never become an
// untracked broker-side position.
func (e *Engine) rolloverIfNeeded(now time.Time) error {
	today := e.cal.TradingDay(now)
	if e.day.Date == today.String() {
		return nil
	}

	for _, t := range e.day.NonTerminal() {
		was := t.Status
		e.log.Error("trade abandoned at daily reset", "trade", t.ID, "status", was)

		st := trade.StatusFailed
		if was == trade.StatusOpen {
			st = trade.StatusClosedManual
		} else {
			e.cancelAsync(t.EntryOrderID)
		}
		if err := t.Transition(st, trade.ExitAbandoned, now); err != nil {
			return err
		}
		if cfg := e.cal.Session(t.SessionID); cfg != nil {
			e.finalize(*cfg, *t)
		}
		e.ntf.Error(fmt.Sprintf("trade %s was still %s at the daily reset; marked %s - check the account",
			t.ID, was, st))
	}

	e.log.Info("new trading day", "date", today.String())
	e.day = state.NewDay(today)
	e.fetching = map[string]bool{}
	metrics.OpenTrades.Set(0)

	if err := e.persist(); err != nil {
		return err
	}
	e.ntf.DailyReset(today.String())
	return nil
}

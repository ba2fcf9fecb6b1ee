// Package sim is a deterministic in-memory broker used by tests and
// paper-trading runs. Entries fill at the last injected close; bracket
// legs trigger off subsequent closes, with OCO sibling cancellation.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/platinum/broker"
	"github.com/rustyeddy/platinum/market"
)

type legKind int

const (
	legEntry legKind = iota
	legTarget
	legStop
)

type order struct {
	id      string
	kind    legKind
	working bool
}

type bracket struct {
	req    broker.BracketOrderRequest
	handle broker.OrderHandle

	filled      bool
	entryPrice  float64
	targetPrice float64
	stopPrice   float64
	done        bool
}

// Broker implements broker.Broker against injected candles.
type Broker struct {
	mu sync.Mutex

	candles chan market.Candle
	events  chan broker.OrderEvent

	historical map[time.Time]market.Candle
	orders     map[string]*order
	brackets   []*bracket

	lastClose float64
	nextID    int

	// Behavior knobs for tests.
	AuthErr       error // returned by Authenticate
	RejectEntries bool  // PlaceBracketOrder fails with OrderRejectedError
	HoldEntries   bool  // entries stay working until ReleaseEntries or cancel
}

func New() *Broker {
	return &Broker{
		candles:    make(chan market.Candle, 64),
		events:     make(chan broker.OrderEvent, 64),
		historical: make(map[time.Time]market.Candle),
		orders:     make(map[string]*order),
	}
}

func (b *Broker) Authenticate(ctx context.Context) error {
	if b.AuthErr != nil {
		return &broker.AuthError{Err: b.AuthErr}
	}
	return nil
}

// SetHistorical registers the candle FetchCandle returns for an instant.
func (b *Broker) SetHistorical(at time.Time, c market.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.historical[at.UTC()] = c
}

func (b *Broker) FetchCandle(ctx context.Context, symbol string, iv market.Interval, at time.Time) (market.Candle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.historical[at.UTC()]
	if !ok {
		return market.Candle{}, &broker.DataUnavailableError{
			What: fmt.Sprintf("%s %s candle at %s", symbol, iv, at),
			Err:  fmt.Errorf("no candle"),
		}
	}
	return c, nil
}

func (b *Broker) StreamCandles(ctx context.Context, symbol string, iv market.Interval) (<-chan market.Candle, error) {
	return b.candles, nil
}

func (b *Broker) OrderEvents(ctx context.Context) (<-chan broker.OrderEvent, error) {
	return b.events, nil
}

// InjectCandle feeds a closed candle into the stream and runs bracket
// trigger checks against its close.
func (b *Broker) InjectCandle(c market.Candle) {
	b.mu.Lock()
	b.lastClose = c.Close
	b.checkTriggersLocked(c)
	b.mu.Unlock()

	b.candles <- c
}

func (b *Broker) PlaceBracketOrder(ctx context.Context, req broker.BracketOrderRequest) (broker.OrderHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.RejectEntries {
		return broker.OrderHandle{}, &broker.OrderRejectedError{Reason: "rejected by sim"}
	}

	b.nextID++
	h := broker.OrderHandle{
		EntryID:  fmt.Sprintf("E-%d", b.nextID),
		TargetID: fmt.Sprintf("T-%d", b.nextID),
		StopID:   fmt.Sprintf("S-%d", b.nextID),
	}

	br := &bracket{req: req, handle: h}
	b.brackets = append(b.brackets, br)
	b.orders[h.EntryID] = &order{id: h.EntryID, kind: legEntry, working: true}
	b.orders[h.TargetID] = &order{id: h.TargetID, kind: legTarget, working: true}
	b.orders[h.StopID] = &order{id: h.StopID, kind: legStop, working: true}

	b.emitLocked(broker.OrderEvent{OrderID: h.EntryID, Status: broker.OrderSubmitted, Time: time.Now()})

	if !b.HoldEntries {
		b.fillEntryLocked(br)
	}
	return h, nil
}

// ReleaseEntries fills every held entry at the last close.
func (b *Broker) ReleaseEntries() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, br := range b.brackets {
		if !br.filled && !br.done {
			b.fillEntryLocked(br)
		}
	}
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok || !o.working {
		return nil // already gone; cancellation is idempotent
	}
	o.working = false
	b.emitLocked(broker.OrderEvent{OrderID: orderID, Status: broker.OrderCancelled, Time: time.Now()})

	// Cancelling an unfilled entry kills the bracket.
	if o.kind == legEntry {
		for _, br := range b.brackets {
			if br.handle.EntryID == orderID {
				br.done = true
			}
		}
	}
	return nil
}

func (b *Broker) fillEntryLocked(br *bracket) {
	o := b.orders[br.handle.EntryID]
	if o == nil || !o.working {
		return
	}
	o.working = false

	br.filled = true
	br.entryPrice = b.lastClose
	br.targetPrice = br.req.Direction.TargetFrom(br.entryPrice, br.req.TargetPoints)
	br.stopPrice = br.req.Direction.StopFrom(br.entryPrice, br.req.StopPoints)

	b.emitLocked(broker.OrderEvent{
		OrderID:   br.handle.EntryID,
		Status:    broker.OrderFilled,
		FillPrice: br.entryPrice,
		Time:      time.Now(),
	})
}

// checkTriggersLocked fills target or stop legs whose level the close
// reached, cancelling the OCO sibling.
func (b *Broker) checkTriggersLocked(c market.Candle) {
	for _, br := range b.brackets {
		if !br.filled || br.done {
			continue
		}

		long := br.req.Direction == market.Long
		targetHit := (long && c.Close >= br.targetPrice) || (!long && c.Close <= br.targetPrice)
		stopHit := (long && c.Close <= br.stopPrice) || (!long && c.Close >= br.stopPrice)

		switch {
		case targetHit:
			b.fillLegLocked(br, br.handle.TargetID, br.targetPrice, br.handle.StopID)
		case stopHit:
			b.fillLegLocked(br, br.handle.StopID, br.stopPrice, br.handle.TargetID)
		}
	}
}

func (b *Broker) fillLegLocked(br *bracket, fillID string, price float64, siblingID string) {
	br.done = true

	if o := b.orders[fillID]; o != nil && o.working {
		o.working = false
		b.emitLocked(broker.OrderEvent{OrderID: fillID, Status: broker.OrderFilled, FillPrice: price, Time: time.Now()})
	}
	if o := b.orders[siblingID]; o != nil && o.working {
		o.working = false
		b.emitLocked(broker.OrderEvent{OrderID: siblingID, Status: broker.OrderCancelled, Time: time.Now()})
	}
}

func (b *Broker) emitLocked(ev broker.OrderEvent) {
	select {
	case b.events <- ev:
	default:
		// Event buffer full; a real broker would disconnect us long
		// before this. Drop rather than deadlock the caller.
	}
}

// DrainEvents returns every buffered order event without blocking.
func (b *Broker) DrainEvents() []broker.OrderEvent {
	var out []broker.OrderEvent
	for {
		select {
		case ev := <-b.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/platinum/market"
)

// Broker is the capability surface the engine needs from a futures broker.
// Implementations: dxlink (live), sim (paper/tests).
type Broker interface {
	// Authenticate establishes broker session credentials. The engine
	// treats a failure here as fatal; nothing can trade without a session.
	Authenticate(ctx context.Context) error

	// FetchCandle retrieves the single historical candle whose interval
	// opens at the given instant.
	FetchCandle(ctx context.Context, symbol string, iv market.Interval, at time.Time) (market.Candle, error)

	// StreamCandles subscribes to closed candles for symbol at the given
	// interval. The channel is closed when the stream ends (disconnect or
	// ctx cancellation); callers reconnect by calling StreamCandles again.
	StreamCandles(ctx context.Context, symbol string, iv market.Interval) (<-chan market.Candle, error)

	// PlaceBracketOrder submits a market entry paired with an OCO
	// target/stop bracket and returns the broker order IDs for all three
	// legs. Fills arrive asynchronously on OrderEvents.
	PlaceBracketOrder(ctx context.Context, req BracketOrderRequest) (OrderHandle, error)

	// CancelOrder requests cancellation of a working order.
	CancelOrder(ctx context.Context, orderID string) error

	// OrderEvents subscribes to order status updates for the session's
	// account. Closed on disconnect, restartable like StreamCandles.
	OrderEvents(ctx context.Context) (<-chan OrderEvent, error)
}

// BracketOrderRequest describes a market entry plus its OCO bracket.
// Target and stop prices are derived broker-side from the entry fill,
// offset by the configured point distances.
type BracketOrderRequest struct {
	Symbol       string
	Direction    market.Direction
	Quantity     int
	TargetPoints float64
	StopPoints   float64

	// ClientRef is a caller-generated idempotency reference attached to
	// the entry order.
	ClientRef string
}

// OrderHandle identifies the three legs of a submitted bracket.
type OrderHandle struct {
	EntryID  string
	TargetID string
	StopID   string
}

// OrderStatus is a broker-reported order state.
type OrderStatus string

const (
	OrderSubmitted OrderStatus = "submitted"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderRejected  OrderStatus = "rejected"
)

// OrderEvent is a single order status update.
type OrderEvent struct {
	OrderID   string
	Status    OrderStatus
	FillPrice float64 // set when Status == OrderFilled
	Time      time.Time
}

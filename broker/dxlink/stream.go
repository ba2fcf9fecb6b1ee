package dxlink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/platinum/broker"
	"github.com/rustyeddy/platinum/market"
)

const (
	readWait  = 90 * time.Second
	pingEvery = 30 * time.Second
)

type streamMsg struct {
	Type     string `json:"type"`
	Channel  string `json:"channel,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Interval string `json:"interval,omitempty"`

	// Candle fields.
	Open   float64 `json:"open,omitempty"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Close  float64 `json:"close,omitempty"`
	Volume float64 `json:"volume,omitempty"`
	Time   int64   `json:"time,omitempty"` // unix millis

	// Order event fields.
	OrderID   string  `json:"order_id,omitempty"`
	Status    string  `json:"status,omitempty"`
	FillPrice float64 `json:"fill_price,omitempty"`
}

func (c *Client) dial(ctx context.Context, sub streamMsg) (*websocket.Conn, error) {
	header := http.Header{}
	if tok := c.sessionToken(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.wsURL, err)
	}

	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return conn, nil
}

// readLoop pumps messages until the connection or ctx dies, keeping the
// read deadline fresh via pongs and a periodic ping.
func readLoop(ctx context.Context, conn *websocket.Conn, handle func(streamMsg)) {
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg streamMsg
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "HEARTBEAT" {
				conn.SetReadDeadline(time.Now().Add(readWait))
				continue
			}
			handle(msg)
		}
	}()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			<-done
			return
		case <-done:
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				conn.Close()
				<-done
				return
			}
		}
	}
}

// StreamCandles subscribes to closed candles for symbol. The returned
// channel closes when the connection drops; callers resubscribe.
func (c *Client) StreamCandles(ctx context.Context, symbol string, iv market.Interval) (<-chan market.Candle, error) {
	conn, err := c.dial(ctx, streamMsg{
		Type:     "subscribe",
		Channel:  "candles",
		Symbol:   symbol,
		Interval: string(iv),
	})
	if err != nil {
		return nil, &broker.DataUnavailableError{What: "candle stream", Err: err}
	}

	out := make(chan market.Candle, 16)
	go func() {
		defer close(out)
		readLoop(ctx, conn, func(msg streamMsg) {
			if msg.Type != "CANDLE" || msg.Interval != string(iv) {
				return
			}
			c := market.Candle{
				Open:   msg.Open,
				High:   msg.High,
				Low:    msg.Low,
				Close:  msg.Close,
				Volume: msg.Volume,
				Time:   time.UnixMilli(msg.Time).UTC(),
			}
			// A full buffer with a gone consumer must not park the
			// reader forever; ctx teardown unblocks the whole stream.
			select {
			case out <- c:
			case <-ctx.Done():
			}
		})
	}()
	return out, nil
}

// OrderEvents subscribes to order status updates for the session account.
func (c *Client) OrderEvents(ctx context.Context) (<-chan broker.OrderEvent, error) {
	conn, err := c.dial(ctx, streamMsg{Type: "subscribe", Channel: "orders"})
	if err != nil {
		return nil, &broker.DataUnavailableError{What: "order event stream", Err: err}
	}

	out := make(chan broker.OrderEvent, 16)
	go func() {
		defer close(out)
		readLoop(ctx, conn, func(msg streamMsg) {
			if msg.Type != "ORDER" || msg.OrderID == "" {
				return
			}
			ev := broker.OrderEvent{
				OrderID:   msg.OrderID,
				Status:    broker.OrderStatus(msg.Status),
				FillPrice: msg.FillPrice,
				Time:      time.UnixMilli(msg.Time).UTC(),
			}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		})
	}()
	return out, nil
}

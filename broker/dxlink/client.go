// Package dxlink is the live broker adapter: REST for sessions and
// orders, a websocket feed for candles and order events.
package dxlink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/platinum/broker"
	"github.com/rustyeddy/platinum/market"
)

const (
	// DemoURL is the paper-trading environment.
	DemoURL = "https://demo.dx.trade/dxsca-web"
	// LiveURL is the production environment.
	LiveURL = "https://live.dx.trade/dxsca-web"

	DemoWSURL = "wss://demo.dx.trade/dxsca-web/md"
	LiveWSURL = "wss://live.dx.trade/dxsca-web/md"
)

// Options configures a Client.
type Options struct {
	Username string
	Password string
	Demo     bool

	// BaseURL/WSURL override the environment endpoints (tests).
	BaseURL string
	WSURL   string
}

// Client is a dxlink API client. Safe for use from one goroutine at a
// time, matching the engine's single-flow model.
type Client struct {
	baseURL    string
	wsURL      string
	username   string
	password   string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

func NewClient(opts Options) *Client {
	base := LiveURL
	ws := LiveWSURL
	if opts.Demo {
		base = DemoURL
		ws = DemoWSURL
	}
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	if opts.WSURL != "" {
		ws = opts.WSURL
	}

	return &Client{
		baseURL:  base,
		wsURL:    ws,
		username: opts.Username,
		password: opts.Password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sessionResponse struct {
	SessionToken string `json:"session_token"`
}

// Authenticate establishes a session and stores its token for later
// calls. Failures wrap broker.AuthError: nothing can trade without one.
func (c *Client) Authenticate(ctx context.Context) error {
	body := map[string]string{"login": c.username, "password": c.password}

	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", body, &resp); err != nil {
		return &broker.AuthError{Err: err}
	}
	if resp.SessionToken == "" {
		return &broker.AuthError{Err: fmt.Errorf("empty session token")}
	}

	c.mu.Lock()
	c.token = resp.SessionToken
	c.mu.Unlock()
	return nil
}

func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type apiCandle struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Time   int64   `json:"time"` // interval open, unix millis
}

func (a apiCandle) toMarket() market.Candle {
	return market.Candle{
		Open:   a.Open,
		High:   a.High,
		Low:    a.Low,
		Close:  a.Close,
		Volume: a.Volume,
		Time:   time.UnixMilli(a.Time).UTC(),
	}
}

type candlesResponse struct {
	Candles []apiCandle `json:"candles"`
}

// FetchCandle retrieves the single historical candle opening at the
// given instant.
func (c *Client) FetchCandle(ctx context.Context, symbol string, iv market.Interval, at time.Time) (market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(iv))
	params.Set("from", at.UTC().Format(time.RFC3339))
	params.Set("count", "1")

	var resp candlesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/candles?"+params.Encode(), nil, &resp); err != nil {
		return market.Candle{}, &broker.DataUnavailableError{
			What: fmt.Sprintf("%s %s candle at %s", symbol, iv, at.Format(time.RFC3339)),
			Err:  err,
		}
	}

	want := at.UTC().Truncate(iv.Duration())
	for _, a := range resp.Candles {
		mc := a.toMarket()
		if mc.Time.Equal(want) && mc.Valid() {
			return mc, nil
		}
	}
	return market.Candle{}, &broker.DataUnavailableError{
		What: fmt.Sprintf("%s %s candle at %s", symbol, iv, at.Format(time.RFC3339)),
		Err:  fmt.Errorf("candle not in response"),
	}
}

type bracketRequest struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Quantity     int     `json:"quantity"`
	TargetPoints float64 `json:"target_points"`
	StopPoints   float64 `json:"stop_points"`
	ClientRef    string  `json:"client_ref"`
}

type bracketResponse struct {
	EntryID  string `json:"entry_id"`
	TargetID string `json:"target_id"`
	StopID   string `json:"stop_id"`
}

// PlaceBracketOrder submits a market entry with an attached OCO bracket.
func (c *Client) PlaceBracketOrder(ctx context.Context, req broker.BracketOrderRequest) (broker.OrderHandle, error) {
	ref := req.ClientRef
	if ref == "" {
		ref = uuid.NewString()
	}

	body := bracketRequest{
		Symbol:       req.Symbol,
		Side:         string(req.Direction),
		Quantity:     req.Quantity,
		TargetPoints: req.TargetPoints,
		StopPoints:   req.StopPoints,
		ClientRef:    ref,
	}

	var resp bracketResponse
	if err := c.doJSON(ctx, http.MethodPost, "/orders/bracket", body, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			return broker.OrderHandle{}, &broker.OrderRejectedError{Reason: se.message}
		}
		return broker.OrderHandle{}, fmt.Errorf("place bracket: %w", err)
	}
	if resp.EntryID == "" {
		return broker.OrderHandle{}, &broker.OrderRejectedError{Reason: "no entry order id in response"}
	}

	return broker.OrderHandle{
		EntryID:  resp.EntryID,
		TargetID: resp.TargetID,
		StopID:   resp.StopID,
	}, nil
}

// CancelOrder requests cancellation of a working order. A 404 means the
// order is already gone, which callers treat as success.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	err := c.doJSON(ctx, http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.message)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.sessionToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(data)
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &statusError{code: resp.StatusCode, message: msg}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

package market

import "time"

// Interval is a candle aggregation period.
type Interval string

const (
	M1 Interval = "1m"
	H1 Interval = "1h"
)

// Duration returns the wall-clock length of one candle at this interval.
func (i Interval) Duration() time.Duration {
	switch i {
	case M1:
		return time.Minute
	case H1:
		return time.Hour
	}
	return 0
}

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
// Time is the open of the interval, as stamped by the exchange feed.
type Candle struct {
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Time   time.Time `json:"time"`
}

// CloseTime returns the instant the candle completed.
func (c Candle) CloseTime(iv Interval) time.Time {
	return c.Time.Add(iv.Duration())
}

// Valid reports whether the candle carries usable prices. Feeds
// occasionally emit zero-filled placeholder bars on subscribe.
func (c Candle) Valid() bool {
	return c.Open > 0 && c.High > 0 && c.Low > 0 && c.Close > 0
}

// Package metrics exposes Prometheus counters the bot updates during
// operation, served at /metrics in text exposition format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CandlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platinum_candles_total",
		Help: "Closed 1-minute candles processed",
	})

	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platinum_signals_total",
		Help: "Breakout signals detected",
	}, []string{"direction"})

	TradesOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platinum_trades_opened_total",
		Help: "Trades whose entry filled",
	}, []string{"session", "direction"})

	TradesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platinum_trades_closed_total",
		Help: "Trades reaching a terminal status, by exit reason",
	}, []string{"session", "reason"})

	OrderRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platinum_order_rejects_total",
		Help: "Bracket submissions rejected by the broker",
	})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platinum_stream_reconnects_total",
		Help: "Candle stream reconnections",
	})

	OpenTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "platinum_open_trades",
		Help: "Trades currently in a non-terminal status",
	})
)

// Serve exposes /metrics on addr. Runs until the listener fails; callers
// start it in a goroutine and treat failure as non-fatal.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

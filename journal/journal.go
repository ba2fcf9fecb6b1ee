// Package journal records terminal trades for later review. The journal
// is an audit artifact; the state store remains the point of truth for
// recovery.
package journal

import "github.com/rustyeddy/platinum/trade"

type Journal interface {
	Record(t trade.Trade) error
	List(limit int) ([]trade.Trade, error)
	Close() error
}

// Nop discards records. Used when journaling is disabled.
type Nop struct{}

func (Nop) Record(trade.Trade) error        { return nil }
func (Nop) List(int) ([]trade.Trade, error) { return nil, nil }
func (Nop) Close() error                    { return nil }

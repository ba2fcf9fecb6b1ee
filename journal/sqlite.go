package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/platinum/market"
	"github.com/rustyeddy/platinum/trade"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Record upserts a terminal trade. Upsert keeps the journal idempotent
// across restarts that replay known order events.
func (j *SQLite) Record(t trade.Trade) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO trades
		(trade_id, session_id, direction, status, trigger_price, entry_price,
		 target_price, stop_price, opened_at, closed_at, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, string(t.Direction), string(t.Status),
		t.TriggerPrice, t.EntryPrice, t.TargetPrice, t.StopPrice,
		t.OpenedAt, t.ClosedAt, t.ExitReason,
	)
	return err
}

// List returns the most recent trades, newest first.
func (j *SQLite) List(limit int) ([]trade.Trade, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, session_id, direction, status, trigger_price,
		       entry_price, target_price, stop_price, opened_at, closed_at, exit_reason
		FROM trades ORDER BY opened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trade.Trade
	for rows.Next() {
		var t trade.Trade
		var dir, status string
		var opened, closed time.Time
		if err := rows.Scan(&t.ID, &t.SessionID, &dir, &status, &t.TriggerPrice,
			&t.EntryPrice, &t.TargetPrice, &t.StopPrice, &opened, &closed, &t.ExitReason); err != nil {
			return nil, err
		}
		t.Direction = market.Direction(dir)
		t.Status = trade.Status(status)
		t.OpenedAt = opened
		t.ClosedAt = closed
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

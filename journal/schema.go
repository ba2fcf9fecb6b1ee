package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	trigger_price REAL NOT NULL,
	entry_price REAL NOT NULL,
	target_price REAL NOT NULL,
	stop_price REAL NOT NULL,
	opened_at DATETIME NOT NULL,
	closed_at DATETIME NOT NULL,
	exit_reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_opened ON trades(opened_at);
`

package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"obpilot/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  venue TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(venue, symbol)
);
CREATE INDEX IF NOT EXISTS idx_prices_ts ON prices(ts_ms);

CREATE TABLE IF NOT EXISTS signals (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  price REAL NOT NULL,
  volume REAL NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);
CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);

CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  qty REAL NOT NULL,
  entry_price REAL NOT NULL,
  stop_price REAL NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);

CREATE TABLE IF NOT EXISTS protection_moves (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  level_pct REAL NOT NULL,
  stop_price REAL NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_protection_ts ON protection_moves(ts_ms);
CREATE INDEX IF NOT EXISTS idx_protection_symbol ON protection_moves(symbol);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, venue, symbol string, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO prices(venue, symbol, price, ts_ms, created_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(venue, symbol) DO UPDATE SET price=excluded.price, ts_ms=excluded.ts_ms`,
		venue, symbol, price, ts, time.Now().UnixMilli())
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, ts int64, symbol, side string, price, volume float64, payload string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO signals(ts_ms, symbol, side, price, volume, payload, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
		ts, symbol, side, price, volume, payload, time.Now().UnixMilli())
	return err
}

func (r *Repo) InsertTrade(ctx context.Context, id string, ts int64, symbol, side string, qty, entryPrice, stopPrice float64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO trades(id, ts_ms, symbol, side, qty, entry_price, stop_price, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ts, symbol, side, qty, entryPrice, stopPrice, time.Now().UnixMilli())
	return err
}

func (r *Repo) InsertProtectionMove(ctx context.Context, ts int64, symbol, side string, level, stopPrice float64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO protection_moves(ts_ms, symbol, side, level_pct, stop_price, created_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		ts, symbol, side, level, stopPrice, time.Now().UnixMilli())
	return err
}

// ProtectionMoves returns the recorded stop advances for a symbol, oldest
// first. Used by tests and ad-hoc inspection.
func (r *Repo) ProtectionMoves(ctx context.Context, symbol string) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT level_pct FROM protection_moves WHERE symbol = ? ORDER BY id`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []float64
	for rows.Next() {
		var l float64
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

var _ port.Repository = (*Repo)(nil)

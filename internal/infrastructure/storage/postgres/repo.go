package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"obpilot/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  venue TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL,
  PRIMARY KEY (venue, symbol)
);

CREATE TABLE IF NOT EXISTS signals (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  volume DOUBLE PRECISION NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);

CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  qty DOUBLE PRECISION NOT NULL,
  entry_price DOUBLE PRECISION NOT NULL,
  stop_price DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);

CREATE TABLE IF NOT EXISTS protection_moves (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  level_pct DOUBLE PRECISION NOT NULL,
  stop_price DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_protection_ts ON protection_moves(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, venue, symbol string, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO prices(venue, symbol, price, ts_ms) VALUES($1, $2, $3, $4)
ON CONFLICT (venue, symbol) DO UPDATE SET price = EXCLUDED.price, ts_ms = EXCLUDED.ts_ms`,
		venue, symbol, price, ts)
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, ts int64, symbol, side string, price, volume float64, payload string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO signals(ts_ms, symbol, side, price, volume, payload) VALUES($1, $2, $3, $4, $5, $6)`,
		ts, symbol, side, price, volume, payload)
	return err
}

func (r *Repo) InsertTrade(ctx context.Context, id string, ts int64, symbol, side string, qty, entryPrice, stopPrice float64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO trades(id, ts_ms, symbol, side, qty, entry_price, stop_price) VALUES($1, $2, $3, $4, $5, $6, $7)`,
		id, ts, symbol, side, qty, entryPrice, stopPrice)
	return err
}

func (r *Repo) InsertProtectionMove(ctx context.Context, ts int64, symbol, side string, level, stopPrice float64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO protection_moves(ts_ms, symbol, side, level_pct, stop_price) VALUES($1, $2, $3, $4, $5)`,
		ts, symbol, side, level, stopPrice)
	return err
}

var _ port.Repository = (*Repo)(nil)

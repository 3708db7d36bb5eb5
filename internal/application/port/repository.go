package port

import "context"

// Repository journals what the bot observed and did. Every write is
// best-effort: a journaling failure never blocks the pipeline.
type Repository interface {
	// UpsertLatestPrice records the most recent reference price seen.
	UpsertLatestPrice(ctx context.Context, venue, symbol string, price float64, ts int64) error

	// InsertSignal records one scored candidate selection. Payload is the
	// JSON-encoded selection detail.
	InsertSignal(ctx context.Context, ts int64, symbol, side string, price, volume float64, payload string) error

	// InsertTrade records an opened position.
	InsertTrade(ctx context.Context, id string, ts int64, symbol, side string, qty, entryPrice, stopPrice float64) error

	// InsertProtectionMove records one stop-loss advancement.
	InsertProtectionMove(ctx context.Context, ts int64, symbol, side string, level, stopPrice float64) error

	Close() error
}

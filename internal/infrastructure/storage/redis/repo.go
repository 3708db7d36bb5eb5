package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"obpilot/internal/application/port"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb              *redis.Client
	prefix           string
	ttl              time.Duration
	keyLatest        string // prefix + ":latest"
	signalStream     string
	tradeStream      string
	protectionStream string
}

type LatestPrice struct {
	Venue  string  `json:"venue"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Ts     int64   `json:"ts"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "obpilot"
	}
	return &Repo{
		rdb:              rdb,
		prefix:           prefix,
		ttl:              ttl,
		keyLatest:        prefix + ":latest",
		signalStream:     prefix + ":signals",
		tradeStream:      prefix + ":trades",
		protectionStream: prefix + ":protection",
	}
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, venue, symbol string, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	lp := LatestPrice{Venue: venue, Symbol: symbol, Price: price, Ts: ts}
	b, _ := json.Marshal(lp)

	// Hash: field = "BINANCE:BTCUSDT" -> json
	field := fmt.Sprintf("%s:%s", venue, symbol)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, ts int64, symbol, side string, price, volume float64, payload string) error {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.signalStream,
		Values: map[string]any{
			"ts_ms":   ts,
			"symbol":  symbol,
			"side":    side,
			"price":   price,
			"volume":  volume,
			"payload": payload,
		},
	}).Result()
	return err
}

func (r *Repo) InsertTrade(ctx context.Context, id string, ts int64, symbol, side string, qty, entryPrice, stopPrice float64) error {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.tradeStream,
		Values: map[string]any{
			"id":          id,
			"ts_ms":       ts,
			"symbol":      symbol,
			"side":        side,
			"qty":         qty,
			"entry_price": entryPrice,
			"stop_price":  stopPrice,
		},
	}).Result()
	return err
}

func (r *Repo) InsertProtectionMove(ctx context.Context, ts int64, symbol, side string, level, stopPrice float64) error {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.protectionStream,
		Values: map[string]any{
			"ts_ms":      ts,
			"symbol":     symbol,
			"side":       side,
			"level_pct":  level,
			"stop_price": stopPrice,
		},
	}).Result()
	return err
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.Repository = (*Repo)(nil)

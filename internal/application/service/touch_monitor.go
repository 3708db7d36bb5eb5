package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
)

// TouchResult reports which candidate level was crossed.
type TouchResult struct {
	Side  model.Side
	Level decimal.Decimal
	Price decimal.Decimal // reference price at the moment of the touch
}

// TouchMonitor polls the reference feed and waits for the live price to
// cross either candidate level. It is a two-state machine: armed until one
// side triggers, then done for this invocation. Only one side can ever
// trigger per session; the caller decides what happens to the other level.
type TouchMonitor struct {
	feed     port.ReferencePriceFeed
	sink     port.Sink
	symbol   string
	interval time.Duration
}

func NewTouchMonitor(feed port.ReferencePriceFeed, sink port.Sink, symbol string, interval time.Duration) *TouchMonitor {
	return &TouchMonitor{feed: feed, sink: sink, symbol: symbol, interval: interval}
}

// Wait blocks until the price crosses longLevel downward or shortLevel
// upward, returning the touched side. Failed price reads are skipped with
// the previous price retained, never treated as a crossing. Returns ctx.Err
// on cancellation.
func (m *TouchMonitor) Wait(ctx context.Context, longLevel, shortLevel decimal.Decimal) (*TouchResult, error) {
	prev, err := m.feed.LastPrice(ctx, m.symbol)
	for err != nil {
		log.Warn().Err(err).Str("feed", m.feed.Name()).Msg("initial reference price unavailable")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.interval):
		}
		prev, err = m.feed.LastPrice(ctx, m.symbol)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = m.sink.NewLine()
			return nil, ctx.Err()
		case <-ticker.C:
		}

		price, err := m.feed.LastPrice(ctx, m.symbol)
		if err != nil {
			log.Warn().Err(err).Str("feed", m.feed.Name()).Msg("reference price read failed")
			continue
		}

		_ = m.sink.WriteLive(renderWatchLine(m.symbol, price, longLevel, shortLevel))

		if prev.GreaterThan(longLevel) && price.LessThanOrEqual(longLevel) {
			_ = m.sink.NewLine()
			return &TouchResult{Side: model.SideLong, Level: longLevel, Price: price}, nil
		}
		if prev.LessThan(shortLevel) && price.GreaterThanOrEqual(shortLevel) {
			_ = m.sink.NewLine()
			return &TouchResult{Side: model.SideShort, Level: shortLevel, Price: price}, nil
		}

		prev = price
	}
}

func renderWatchLine(symbol string, price, longLevel, shortLevel decimal.Decimal) string {
	distLong := distancePct(longLevel, price)
	distShort := distancePct(shortLevel, price)
	return "\r" + symbol + " $" + price.String() +
		" | LONG " + distLong.StringFixed(3) + "%" +
		" | SHORT " + distShort.StringFixed(3) + "%"
}

func distancePct(level, price decimal.Decimal) decimal.Decimal {
	if price.Sign() == 0 {
		return decimal.Zero
	}
	return level.Sub(price).Div(price).Mul(decimal.NewFromInt(100)).Abs()
}

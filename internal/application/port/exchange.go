package port

import (
	"context"

	"github.com/shopspring/decimal"

	"obpilot/internal/domain/model"
)

// ExchangeGateway is the narrow surface of the execution venue consumed by
// the trading and protection services. The venue owns positions; this side
// only reads state and issues mutation requests.
type ExchangeGateway interface {
	// InstrumentFilters fetches the tick size and lot step for a symbol.
	InstrumentFilters(ctx context.Context, symbol string) (model.InstrumentFilters, error)

	// LastPrice returns the venue's last traded price for a symbol.
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// OpenPositions lists the account's open linear positions. Positions for
	// a single symbol are returned when symbol is non-empty.
	OpenPositions(ctx context.Context, symbol string) ([]model.Position, error)

	// PlaceMarketOrder submits a market order and returns the venue order id.
	PlaceMarketOrder(ctx context.Context, symbol string, side model.Side, qty decimal.Decimal) (string, error)

	// SetTradingStop sets or replaces the full-position stop-loss trigger.
	SetTradingStop(ctx context.Context, symbol string, stopPrice decimal.Decimal) error
}

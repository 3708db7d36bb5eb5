package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// ReferencePriceFeed supplies the price used for touch detection. It is
// deliberately a different venue than the execution gateway: the reference
// check is cross-venue and the two must not be conflated.
type ReferencePriceFeed interface {
	Name() string
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

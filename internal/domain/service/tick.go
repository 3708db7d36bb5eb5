package service

import "github.com/shopspring/decimal"

// DefaultTickSize substitutes for a failed instrument-filter lookup so a
// transient venue error never stalls the cycle.
var DefaultTickSize = decimal.RequireFromString("0.01")

// SnapToTick aligns price to an exact multiple of tick, always truncating
// toward zero. The arithmetic is exact decimal: QuoRem with precision 0
// yields the integer quotient, so repeated snapping never drifts.
//
// A non-positive tick cannot be snapped against; the price is returned
// unchanged and ok is false so the caller can log the fallback without
// aborting its cycle.
func SnapToTick(price, tick decimal.Decimal) (snapped decimal.Decimal, ok bool) {
	if tick.Sign() <= 0 {
		return price, false
	}
	q, _ := price.QuoRem(tick, 0)
	return q.Mul(tick), true
}

package model

import "github.com/shopspring/decimal"

// Side of a position or candidate entry.
type Side string

const (
	SideLong  Side = "Buy"
	SideShort Side = "Sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// OrderBookSnapshot holds one depth snapshot as price -> quantity maps.
// Keys and values are decimal strings as delivered by the feed; the snapshot
// is consumed by a single aggregation cycle and not retained.
type OrderBookSnapshot struct {
	Bids map[string]string `json:"bids"`
	Asks map[string]string `json:"asks"`
}

// Cluster is one aggregated liquidity level: the tick-aligned volume-weighted
// price of all raw book entries that fell into the same coarse bucket, plus
// the bucket's total quantity.
type Cluster struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// InstrumentFilters are the venue-reported rounding constraints for a symbol.
type InstrumentFilters struct {
	TickSize decimal.Decimal
	QtyStep  decimal.Decimal
}

// Position is the venue-reported state of an open position.
type Position struct {
	Symbol     string
	Side       Side
	Size       decimal.Decimal
	EntryPrice decimal.Decimal
	MarkPrice  decimal.Decimal
}

// ProtectionState tracks the stop-loss ratchet for one self-opened position.
// ProtectedLevel is the percentage of favorable movement the current stop
// locks in; it only ever increases for the lifetime of the position.
type ProtectionState struct {
	Symbol         string
	Side           Side
	EntryPrice     decimal.Decimal
	ProtectedLevel decimal.Decimal
	Extremum       decimal.Decimal // best price seen since entry
}

package service

import (
	"github.com/shopspring/decimal"

	"obpilot/internal/domain/model"
)

var (
	oneHundred = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
)

// GainPercent is the signed favorable movement relative to entry: positive
// when the position is in profit on its own side.
func GainPercent(side model.Side, entry, last decimal.Decimal) decimal.Decimal {
	if entry.Sign() == 0 {
		return decimal.Zero
	}
	if side == model.SideLong {
		return last.Sub(entry).Div(entry).Mul(oneHundred)
	}
	return entry.Sub(last).Div(entry).Mul(oneHundred)
}

// Ratchet discretizes gain into protection tiers. A move is only proposed
// once gain reaches twice the advance step (hysteresis: the first profitable
// tier never moves the stop) and only when the resulting level strictly
// exceeds the last recorded one.
type Ratchet struct {
	AdvanceStep      decimal.Decimal // tier width, percent
	ProtectionMargin decimal.Decimal // buffer subtracted from the achieved tier, percent
}

// NextLevel returns the protection level the stop should lock in for the
// given gain, or ok=false when no advance is due.
func (r Ratchet) NextLevel(gainPct, lastLevel decimal.Decimal) (level decimal.Decimal, ok bool) {
	if r.AdvanceStep.Sign() <= 0 {
		return decimal.Zero, false
	}
	if gainPct.LessThan(r.AdvanceStep.Mul(decimal.NewFromInt(2))) {
		return decimal.Zero, false
	}
	q, _ := gainPct.QuoRem(r.AdvanceStep, 0)
	target := q.Mul(r.AdvanceStep)
	level = target.Sub(r.ProtectionMargin)
	if !level.GreaterThan(lastLevel) {
		return decimal.Zero, false
	}
	return level, true
}

// StopPrice converts a protection level into the stop price for the side,
// snapped to the instrument tick.
func StopPrice(side model.Side, entry, level, tick decimal.Decimal) decimal.Decimal {
	pct := level.Div(oneHundred)
	var raw decimal.Decimal
	if side == model.SideLong {
		raw = entry.Mul(one.Add(pct))
	} else {
		raw = entry.Mul(one.Sub(pct))
	}
	snapped, _ := SnapToTick(raw, tick)
	return snapped
}

// InitialStopPrice places the opening stop at the configured distance below
// (long) or above (short) the fill price.
func InitialStopPrice(side model.Side, entry, distancePct, tick decimal.Decimal) decimal.Decimal {
	pct := distancePct.Div(oneHundred)
	var raw decimal.Decimal
	if side == model.SideLong {
		raw = entry.Mul(one.Sub(pct))
	} else {
		raw = entry.Mul(one.Add(pct))
	}
	snapped, _ := SnapToTick(raw, tick)
	return snapped
}

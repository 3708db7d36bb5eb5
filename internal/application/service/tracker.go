package service

import (
	"sync"

	"github.com/shopspring/decimal"

	"obpilot/internal/domain/model"
)

// PositionTracker owns the per-symbol protection state. It is the only
// structure shared between the entry cycle (which inserts on open) and the
// protection sweep (which advances levels and removes closed entries), so
// all access goes through one mutex.
type PositionTracker struct {
	mu      sync.Mutex
	entries map[string]*model.ProtectionState
}

func NewPositionTracker() *PositionTracker {
	return &PositionTracker{entries: make(map[string]*model.ProtectionState)}
}

// Track registers a freshly opened position with protection level zero.
// An existing entry for the symbol is replaced: a new position never
// inherits the previous one's progress.
func (t *PositionTracker) Track(symbol string, side model.Side, entryPrice decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[symbol] = &model.ProtectionState{
		Symbol:         symbol,
		Side:           side,
		EntryPrice:     entryPrice,
		ProtectedLevel: decimal.Zero,
		Extremum:       entryPrice,
	}
}

// Get returns a copy of the tracked state for a symbol.
func (t *PositionTracker) Get(symbol string) (model.ProtectionState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.entries[symbol]
	if !ok {
		return model.ProtectionState{}, false
	}
	return *st, true
}

// Advance raises the protected level and updates the price extremum. Levels
// are monotonic: a value not strictly above the current one is ignored.
func (t *PositionTracker) Advance(symbol string, level, lastPrice decimal.Decimal) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.entries[symbol]
	if !ok || !level.GreaterThan(st.ProtectedLevel) {
		return false
	}
	st.ProtectedLevel = level
	if st.Side == model.SideLong && lastPrice.GreaterThan(st.Extremum) {
		st.Extremum = lastPrice
	}
	if st.Side == model.SideShort && lastPrice.LessThan(st.Extremum) {
		st.Extremum = lastPrice
	}
	return true
}

// Remove drops the entry for a symbol, typically on position close.
func (t *PositionTracker) Remove(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, symbol)
}

// Symbols lists the currently tracked symbols.
func (t *PositionTracker) Symbols() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.entries))
	for s := range t.entries {
		out = append(out, s)
	}
	return out
}

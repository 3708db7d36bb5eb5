package port

import (
	"context"

	"obpilot/internal/domain/model"
)

// OrderBookSource delivers one fresh depth snapshot per aggregation cycle.
type OrderBookSource interface {
	Name() string
	Snapshot(ctx context.Context, symbol string) (*model.OrderBookSnapshot, error)
}

package noop

import (
	"context"

	"obpilot/internal/application/port"
)

// Repo discards every write. Used when no storage backend is configured.
type Repo struct{}

func New() *Repo { return &Repo{} }

func (Repo) UpsertLatestPrice(context.Context, string, string, float64, int64) error { return nil }

func (Repo) InsertSignal(context.Context, int64, string, string, float64, float64, string) error {
	return nil
}

func (Repo) InsertTrade(context.Context, string, int64, string, string, float64, float64, float64) error {
	return nil
}

func (Repo) InsertProtectionMove(context.Context, int64, string, string, float64, float64) error {
	return nil
}

func (Repo) Close() error { return nil }

var _ port.Repository = Repo{}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
	domainservice "obpilot/internal/domain/service"
)

// ProtectionService sweeps the account's open positions on its own cadence
// and ratchets each tracked position's stop-loss forward as profit accrues.
// Positions without a tracking entry were not opened by this process and are
// left alone.
type ProtectionService struct {
	ratchet  domainservice.Ratchet
	interval time.Duration
	gateway  port.ExchangeGateway
	tracker  *PositionTracker
	repo     port.Repository
	notifier port.Notifier
}

func NewProtectionService(ratchet domainservice.Ratchet, interval time.Duration, gw port.ExchangeGateway, tracker *PositionTracker, repo port.Repository, notifier port.Notifier) *ProtectionService {
	return &ProtectionService{
		ratchet:  ratchet,
		interval: interval,
		gateway:  gw,
		tracker:  tracker,
		repo:     repo,
		notifier: notifier,
	}
}

// Run executes sweeps until the context is cancelled. A failing sweep is
// logged and retried on the next tick; the loop itself never exits on error.
func (s *ProtectionService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("protection sweep started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := s.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("protection sweep failed")
		}
	}
}

// Sweep runs one pass over all open positions. A single symbol's failure is
// logged and does not abort the rest of the pass.
func (s *ProtectionService) Sweep(ctx context.Context) error {
	positions, err := s.gateway.OpenPositions(ctx, "")
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	open := make(map[string]model.Position, len(positions))
	for _, p := range positions {
		if p.Size.Sign() != 0 {
			open[p.Symbol] = p
		}
	}

	// clear tracking for positions that no longer exist: a later position on
	// the same symbol must start from protection zero, not inherit progress
	for _, symbol := range s.tracker.Symbols() {
		if _, ok := open[symbol]; !ok {
			s.tracker.Remove(symbol)
			log.Info().Str("symbol", symbol).Msg("position closed, protection tracking cleared")
		}
	}

	for symbol, pos := range open {
		if err := s.advanceOne(ctx, symbol, pos); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("protection advance failed")
		}
	}
	return nil
}

func (s *ProtectionService) advanceOne(ctx context.Context, symbol string, pos model.Position) error {
	st, tracked := s.tracker.Get(symbol)
	if !tracked {
		return nil
	}

	last, err := s.gateway.LastPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("last price: %w", err)
	}

	gain := domainservice.GainPercent(st.Side, st.EntryPrice, last)
	level, due := s.ratchet.NextLevel(gain, st.ProtectedLevel)
	if !due {
		return nil
	}

	tick := domainservice.DefaultTickSize
	if filters, err := s.gateway.InstrumentFilters(ctx, symbol); err == nil {
		tick = filters.TickSize
	} else {
		log.Warn().Err(err).Str("symbol", symbol).Msg("instrument filters unavailable, using default tick")
	}

	stop := domainservice.StopPrice(st.Side, st.EntryPrice, level, tick)
	if err := s.gateway.SetTradingStop(ctx, symbol, stop); err != nil {
		return fmt.Errorf("set trading stop: %w", err)
	}

	if !s.tracker.Advance(symbol, level, last) {
		// another writer advanced past us between Get and Advance; the stop
		// on the venue is still valid, just not ours to record
		return nil
	}

	if err := s.repo.InsertProtectionMove(ctx, time.Now().UnixMilli(), symbol, string(st.Side),
		level.InexactFloat64(), stop.InexactFloat64()); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("protection journal write failed")
	}

	log.Info().
		Str("symbol", symbol).
		Str("side", string(st.Side)).
		Str("gain_pct", gain.StringFixed(2)).
		Str("level_pct", level.String()).
		Str("stop", stop.String()).
		Msg("stop-loss advanced")

	s.notify(ctx, st.Side, symbol, stop, level, last)
	return nil
}

func (s *ProtectionService) notify(ctx context.Context, side model.Side, symbol string, stop, level, last decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Symbol: %s\nSide: %s\nNew stop: $%s\nLocks in: +%s%%\nPrice: $%s",
		symbol, side, stop, level.StringFixed(2), last)
	if err := s.notifier.Send(ctx, "Stop-loss advanced", msg); err != nil {
		log.Error().Err(err).Str("notifier", s.notifier.Name()).Msg("notification failed")
	}
}

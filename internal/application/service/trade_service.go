package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
	domainservice "obpilot/internal/domain/service"
)

// TradeConfig holds the sizing and initial-protection parameters.
type TradeConfig struct {
	Symbol         string
	OrderNotional  decimal.Decimal // quote currency per trade
	InitialStopPct decimal.Decimal // initial stop distance, percent
	SettleWait     time.Duration   // pause between fill and position read-back
}

// TradeService opens positions through the exchange gateway and seeds the
// protection tracker. It is the only writer that inserts tracking entries.
type TradeService struct {
	cfg      TradeConfig
	gateway  port.ExchangeGateway
	tracker  *PositionTracker
	repo     port.Repository
	notifier port.Notifier
}

func NewTradeService(cfg TradeConfig, gw port.ExchangeGateway, tracker *PositionTracker, repo port.Repository, notifier port.Notifier) *TradeService {
	return &TradeService{cfg: cfg, gateway: gw, tracker: tracker, repo: repo, notifier: notifier}
}

// OpenPosition opens a market position on the given side with the configured
// notional, places the initial stop, and registers protection tracking.
// Opening is refused when the symbol already has a nonzero position.
func (s *TradeService) OpenPosition(ctx context.Context, side model.Side) error {
	symbol := s.cfg.Symbol

	existing, err := s.gateway.OpenPositions(ctx, symbol)
	if err != nil {
		return fmt.Errorf("check open positions: %w", err)
	}
	for _, p := range existing {
		if p.Size.Sign() != 0 {
			return fmt.Errorf("position already open on %s", symbol)
		}
	}

	filters, err := s.gateway.InstrumentFilters(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("instrument filters unavailable, using default tick")
		filters = model.InstrumentFilters{TickSize: domainservice.DefaultTickSize, QtyStep: decimal.Zero}
	}

	price, err := s.gateway.LastPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("last price: %w", err)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("last price %s is not positive", price)
	}

	qty := s.cfg.OrderNotional.Div(price)
	if filters.QtyStep.Sign() > 0 {
		qty, _ = domainservice.SnapToTick(qty, filters.QtyStep)
	}
	if qty.Sign() <= 0 {
		return fmt.Errorf("notional %s too small for lot step %s at price %s",
			s.cfg.OrderNotional, filters.QtyStep, price)
	}

	orderID, err := s.gateway.PlaceMarketOrder(ctx, symbol, side, qty)
	if err != nil {
		s.notifyf(ctx, "Open failed", "%s %s: %v", side, symbol, err)
		return fmt.Errorf("place market order: %w", err)
	}

	// give the venue a beat to settle the fill before reading the average
	// entry back from the position
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.SettleWait):
	}

	entry := price
	positions, err := s.gateway.OpenPositions(ctx, symbol)
	if err == nil {
		for _, p := range positions {
			if p.Size.Sign() != 0 && p.EntryPrice.Sign() > 0 {
				entry = p.EntryPrice
				break
			}
		}
	} else {
		log.Warn().Err(err).Str("symbol", symbol).Msg("position read-back failed, using pre-trade price as entry")
	}

	stop := domainservice.InitialStopPrice(side, entry, s.cfg.InitialStopPct, filters.TickSize)
	if err := s.gateway.SetTradingStop(ctx, symbol, stop); err != nil {
		s.notifyf(ctx, "Stop placement failed", "%s %s entry %s: %v", side, symbol, entry, err)
		return fmt.Errorf("set initial stop: %w", err)
	}

	s.tracker.Track(symbol, side, entry)

	tradeID := uuid.NewString()
	if err := s.repo.InsertTrade(ctx, tradeID, time.Now().UnixMilli(), symbol, string(side),
		qty.InexactFloat64(), entry.InexactFloat64(), stop.InexactFloat64()); err != nil {
		log.Error().Err(err).Str("trade", tradeID).Msg("trade journal write failed")
	}

	log.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("order", orderID).
		Str("qty", qty.String()).
		Str("entry", entry.String()).
		Str("stop", stop.String()).
		Msg("position opened")

	s.notifyf(ctx, positionTitle(side), "Symbol: %s\nQty: %s\nEntry: $%s\nStop: $%s (%s%%)\nNotional: $%s",
		symbol, qty, entry, stop, s.cfg.InitialStopPct, s.cfg.OrderNotional)

	return nil
}

func positionTitle(side model.Side) string {
	if side == model.SideLong {
		return "LONG opened"
	}
	return "SHORT opened"
}

func (s *TradeService) notifyf(ctx context.Context, title, format string, args ...any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, title, fmt.Sprintf(format, args...)); err != nil {
		log.Error().Err(err).Str("notifier", s.notifier.Name()).Msg("notification failed")
	}
}

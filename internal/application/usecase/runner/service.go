package runner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/application/service"
	"obpilot/internal/domain/model"
	domainservice "obpilot/internal/domain/service"
)

// ServiceDeps wires the entry pipeline: cluster the book, score both sides,
// wait for a touch, open.
type ServiceDeps struct {
	Symbol       string
	PollInterval time.Duration // touch-monitor cadence
	RetryDelay   time.Duration // pause after a degraded or failed cycle
	Feed         port.ReferencePriceFeed
	Book         port.OrderBookSource
	Aggregator   *domainservice.ClusterAggregator
	Selector     *service.ClusterSelector
	Trader       *service.TradeService
	Repo         port.Repository
	Sink         port.Sink
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// Run drives entry cycles until the context is cancelled. Every per-cycle
// failure is non-fatal: the loop logs, sleeps the retry delay, and starts a
// fresh cycle with a fresh snapshot.
func (s *Service) Run(ctx context.Context) error {
	log.Info().
		Str("symbol", s.deps.Symbol).
		Str("feed", s.deps.Feed.Name()).
		Str("book", s.deps.Book.Name()).
		Msg("entry pipeline started")

	for {
		if err := s.cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Warn().Err(err).Msg("cycle skipped")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.deps.RetryDelay):
			}
		}
	}
}

var (
	errNoPrice      = errors.New("reference price unavailable")
	errNoBook       = errors.New("order book unavailable")
	errThinBook     = errors.New("insufficient clusters")
	errInconclusive = errors.New("model selected no candidate")
)

func (s *Service) cycle(ctx context.Context) error {
	price, err := s.deps.Feed.LastPrice(ctx, s.deps.Symbol)
	if err != nil {
		return errors.Join(errNoPrice, err)
	}
	_ = s.deps.Repo.UpsertLatestPrice(ctx, s.deps.Feed.Name(), s.deps.Symbol, price.InexactFloat64(), time.Now().UnixMilli())

	book, err := s.deps.Book.Snapshot(ctx, s.deps.Symbol)
	if err != nil {
		return errors.Join(errNoBook, err)
	}

	longs, shorts := s.deps.Aggregator.Aggregate(book)
	if len(longs) < domainservice.TopClustersPerSide || len(shorts) < domainservice.TopClustersPerSide {
		log.Debug().Int("longs", len(longs)).Int("shorts", len(shorts)).Msg("degraded depth")
		return errThinBook
	}

	longSel := s.deps.Selector.Select(longs, price, model.SideLong)
	shortSel := s.deps.Selector.Select(shorts, price, model.SideShort)
	if longSel == nil || shortSel == nil {
		return errInconclusive
	}

	s.recordSignal(ctx, price, longSel)
	s.recordSignal(ctx, price, shortSel)

	log.Info().
		Str("price", price.String()).
		Str("long", longSel.Cluster.Price.String()).
		Str("short", shortSel.Cluster.Price.String()).
		Float64("long_prob", longSel.Probability).
		Float64("short_prob", shortSel.Probability).
		Msg("candidates armed")

	monitor := service.NewTouchMonitor(s.deps.Feed, s.deps.Sink, s.deps.Symbol, s.deps.PollInterval)
	touch, err := monitor.Wait(ctx, longSel.Cluster.Price, shortSel.Cluster.Price)
	if err != nil {
		return err
	}

	_ = s.deps.Sink.WriteEvent(time.Now(), "touch "+string(touch.Side)+" @ $"+touch.Price.String())

	if err := s.deps.Trader.OpenPosition(ctx, touch.Side); err != nil {
		log.Error().Err(err).Str("side", string(touch.Side)).Msg("open position failed")
	}
	// either way the untouched side is discarded and clustering restarts
	return nil
}

func (s *Service) recordSignal(ctx context.Context, price decimal.Decimal, sel *service.Selection) {
	payload, _ := json.Marshal(map[string]any{
		"side":        sel.Side,
		"price":       sel.Cluster.Price,
		"volume":      sel.Cluster.Volume,
		"rank":        sel.Rank,
		"probability": sel.Probability,
		"ref_price":   price,
	})
	if err := s.deps.Repo.InsertSignal(ctx, time.Now().UnixMilli(), s.deps.Symbol, string(sel.Side),
		sel.Cluster.Price.InexactFloat64(), sel.Cluster.Volume.InexactFloat64(), string(payload)); err != nil {
		log.Error().Err(err).Msg("signal journal write failed")
	}
}

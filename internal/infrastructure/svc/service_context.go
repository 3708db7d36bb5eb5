package svc

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/application/service"
	"obpilot/internal/application/usecase/runner"
	domainservice "obpilot/internal/domain/service"
	"obpilot/internal/infrastructure/bookservice"
	"obpilot/internal/infrastructure/config"
	"obpilot/internal/infrastructure/exchange/binance"
	"obpilot/internal/infrastructure/exchange/bybit"
	"obpilot/internal/infrastructure/notify"
	"obpilot/internal/infrastructure/scoring"
	compositerepo "obpilot/internal/infrastructure/storage/composite"
	nooprepo "obpilot/internal/infrastructure/storage/noop"
	postgresrepo "obpilot/internal/infrastructure/storage/postgres"
	redisrepo "obpilot/internal/infrastructure/storage/redis"
	sqliterepo "obpilot/internal/infrastructure/storage/sqlite"
	"obpilot/internal/interfaces/console"
)

const settleWait = 2 * time.Second

// ServiceContext owns every wired dependency. It is built once at startup
// and torn down once at exit; services only see the ports they need.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// infrastructure, first to initialize
	gateway   *bybit.Gateway
	priceFeed *binance.PriceClient
	bookFeed  port.OrderBookSource
	repo      port.Repository
	notifier  port.Notifier

	Sink port.Sink

	// application components, built on the infrastructure above
	model      *scoring.Model
	aggregator *domainservice.ClusterAggregator
	selector   *service.ClusterSelector
	tracker    *service.PositionTracker
	trader     *service.TradeService
	protection *service.ProtectionService

	closerChain []func() error
}

// New builds the ServiceContext. This is the single wiring entry point;
// all dependency initialization happens here, in dependency order.
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Sink:        console.NewSink(),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initExchange(); err != nil {
		return err
	}
	if err := sc.initOrderBook(); err != nil {
		return err
	}
	if err := sc.initStorage(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}
	sc.initNotifier()

	model, err := scoring.Load(sc.Config.Model.Path)
	if err != nil {
		return fmt.Errorf("scoring model load failed: %w", err)
	}
	sc.model = model
	log.Info().Str("path", sc.Config.Model.Path).Msg("✓ Scoring model loaded")

	tick := sc.resolveTickSize()
	sc.aggregator = domainservice.NewClusterAggregator(
		decimal.NewFromFloat(sc.Config.App.BucketWidth), tick)
	sc.selector = service.NewClusterSelector(model)
	sc.tracker = service.NewPositionTracker()

	sc.trader = service.NewTradeService(service.TradeConfig{
		Symbol:         sc.Config.App.Symbol,
		OrderNotional:  decimal.NewFromFloat(sc.Config.Trading.OrderNotional),
		InitialStopPct: decimal.NewFromFloat(sc.Config.Trading.InitialStopPct),
		SettleWait:     settleWait,
	}, sc.gateway, sc.tracker, sc.repo, sc.notifier)

	sc.protection = service.NewProtectionService(domainservice.Ratchet{
		AdvanceStep:      decimal.NewFromFloat(sc.Config.Trading.AdvanceStepPct),
		ProtectionMargin: decimal.NewFromFloat(sc.Config.Trading.ProtectionMargin),
	}, sc.Config.SweepInterval(), sc.gateway, sc.tracker, sc.repo, sc.notifier)

	log.Info().Msg("✓ All components initialized")
	return nil
}

func (sc *ServiceContext) initExchange() error {
	apiKey := strings.TrimSpace(os.Getenv("BYBIT_API_KEY"))
	apiSecret := strings.TrimSpace(os.Getenv("BYBIT_API_SECRET"))
	if apiKey == "" || apiSecret == "" {
		return ErrMissingCredentials
	}
	creds := bybit.NewCredentials(apiKey, apiSecret)
	sc.gateway = bybit.NewGateway(bybit.NewAPIClient(sc.Config.Exchange.Bybit.BaseURL, creds))
	sc.priceFeed = binance.NewPriceClient(sc.Config.Exchange.Binance.BaseURL)

	log.Info().
		Str("bybit", sc.Config.Exchange.Bybit.BaseURL).
		Str("binance", sc.Config.Exchange.Binance.BaseURL).
		Msg("✓ Exchange clients initialized")
	return nil
}

func (sc *ServiceContext) initOrderBook() error {
	switch sc.Config.OrderBook.Source {
	case "binance_ws":
		feed := binance.NewDepthFeed(sc.Config.OrderBook.WsURL, sc.Config.App.Symbol, sc.Config.OrderBook.Depth)
		go feed.Start(sc.Ctx)
		sc.bookFeed = feed
		log.Info().
			Str("ws", sc.Config.OrderBook.WsURL).
			Int("depth", sc.Config.OrderBook.Depth).
			Msg("✓ Depth stream starting")
	default:
		sc.bookFeed = bookservice.NewClient(sc.Config.OrderBook.BaseURL)
		log.Info().
			Str("base_url", sc.Config.OrderBook.BaseURL).
			Msg("✓ Order book service client initialized")
	}
	return nil
}

func (sc *ServiceContext) initStorage() error {
	var repos []port.Repository

	if sc.Config.Storage.SQLite.Enabled {
		repo, err := sqliterepo.New(sc.Config.Storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing sqlite connection")
			return repo.Close()
		})
		log.Info().Str("path", sc.Config.Storage.SQLite.Path).Msg("✓ SQLite initialized")
	}

	if sc.Config.Storage.Postgres.Enabled {
		repo, err := postgresrepo.New(sc.Config.Storage.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return repo.Close()
		})
		log.Info().Msg("✓ Postgres initialized")
	}

	if sc.Config.Storage.Redis.Enabled {
		rdb := redisclient.NewClient(&redisclient.Options{
			Addr: sc.Config.Storage.Redis.Addr,
		})
		ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		ttl := time.Duration(sc.Config.Storage.Redis.TTLSeconds) * time.Second
		repo := redisrepo.New(rdb, sc.Config.Storage.Redis.Prefix, ttl)
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing redis connection")
			return rdb.Close()
		})
		log.Info().Str("addr", sc.Config.Storage.Redis.Addr).Msg("✓ Redis initialized")
	}

	switch len(repos) {
	case 0:
		sc.repo = nooprepo.New()
		log.Warn().Msg("no storage backend enabled, journaling disabled")
	case 1:
		sc.repo = repos[0]
	default:
		sc.repo = compositerepo.New(repos...)
	}
	return nil
}

func (sc *ServiceContext) initNotifier() {
	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	chatID := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	if token == "" || chatID == "" {
		sc.notifier = notify.NopSender{}
		log.Info().Msg("telegram not configured, notifications disabled")
		return
	}
	sc.notifier = notify.NewTelegramSender(token, chatID)
	log.Info().Msg("✓ Telegram notifier initialized")
}

// resolveTickSize asks the exchange for the instrument tick. A failure here
// is not fatal; clustering falls back to the default tick until restart.
func (sc *ServiceContext) resolveTickSize() decimal.Decimal {
	ctx, cancel := context.WithTimeout(sc.Ctx, 10*time.Second)
	defer cancel()

	filters, err := sc.gateway.InstrumentFilters(ctx, sc.Config.App.Symbol)
	if err != nil || filters.TickSize.Sign() <= 0 {
		log.Warn().Err(err).
			Str("symbol", sc.Config.App.Symbol).
			Msg("instrument filters unavailable, using default tick size")
		return domainservice.DefaultTickSize
	}
	log.Info().
		Str("symbol", sc.Config.App.Symbol).
		Str("tick_size", filters.TickSize.String()).
		Msg("✓ Instrument filters resolved")
	return filters.TickSize
}

// BuildRunnerDeps assembles the dependency set for the entry pipeline.
func (sc *ServiceContext) BuildRunnerDeps() runner.ServiceDeps {
	return runner.ServiceDeps{
		Symbol:       sc.Config.App.Symbol,
		PollInterval: sc.Config.PollInterval(),
		RetryDelay:   sc.Config.RetryDelay(),
		Feed:         sc.priceFeed,
		Book:         sc.bookFeed,
		Aggregator:   sc.aggregator,
		Selector:     sc.selector,
		Trader:       sc.trader,
		Repo:         sc.repo,
		Sink:         sc.Sink,
	}
}

// Protection exposes the stop-advance sweeper for the main loop.
func (sc *ServiceContext) Protection() *service.ProtectionService {
	return sc.protection
}

// Close tears down all resources in reverse initialization order.
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}

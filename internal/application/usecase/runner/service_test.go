package runner

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/application/service"
	"obpilot/internal/domain/model"
	domainservice "obpilot/internal/domain/service"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubFeed struct {
	mu    sync.Mutex
	queue []decimal.Decimal
}

func (f *stubFeed) Name() string { return "stubfeed" }

func (f *stubFeed) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return decimal.Zero, errors.New("no scripted price")
	}
	p := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return p, nil
}

type stubBook struct {
	snapshot *model.OrderBookSnapshot
	err      error
}

func (b *stubBook) Name() string { return "stubbook" }

func (b *stubBook) Snapshot(ctx context.Context, symbol string) (*model.OrderBookSnapshot, error) {
	return b.snapshot, b.err
}

type stubModel struct {
	class2 []float64
}

func (m *stubModel) FeatureNames() []string { return port.FeatureSchema() }

func (m *stubModel) PredictProba(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i := range rows {
		p2 := 0.0
		if i < len(m.class2) {
			p2 = m.class2[i]
		}
		out[i] = []float64{(1 - p2) / 2, (1 - p2) / 2, p2}
	}
	return out, nil
}

type stubGateway struct {
	mu     sync.Mutex
	orders []model.Side
	stops  []decimal.Decimal
}

func (g *stubGateway) InstrumentFilters(ctx context.Context, symbol string) (model.InstrumentFilters, error) {
	return model.InstrumentFilters{TickSize: dec("0.01"), QtyStep: dec("0.001")}, nil
}

func (g *stubGateway) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return dec("99"), nil
}

func (g *stubGateway) OpenPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	return nil, nil
}

func (g *stubGateway) PlaceMarketOrder(ctx context.Context, symbol string, side model.Side, qty decimal.Decimal) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, side)
	return "order-1", nil
}

func (g *stubGateway) SetTradingStop(ctx context.Context, symbol string, stopPrice decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stops = append(g.stops, stopPrice)
	return nil
}

type stubRepo struct {
	mu      sync.Mutex
	prices  int
	signals []string
	trades  int
}

func (r *stubRepo) UpsertLatestPrice(ctx context.Context, venue, symbol string, price float64, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices++
	return nil
}

func (r *stubRepo) InsertSignal(ctx context.Context, ts int64, symbol, side string, price, volume float64, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, side)
	return nil
}

func (r *stubRepo) InsertTrade(ctx context.Context, id string, ts int64, symbol, side string, qty, entryPrice, stopPrice float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades++
	return nil
}

func (r *stubRepo) InsertProtectionMove(ctx context.Context, ts int64, symbol, side string, level, stopPrice float64) error {
	return nil
}

func (r *stubRepo) Close() error { return nil }

type stubSink struct{}

func (stubSink) WriteLive(line string) error                { return nil }
func (stubSink) WriteEvent(ts time.Time, line string) error { return nil }
func (stubSink) NewLine() error                             { return nil }

type stubNotifier struct{}

func (stubNotifier) Name() string                                      { return "stub" }
func (stubNotifier) Send(ctx context.Context, title, msg string) error { return nil }

// tenLevelBook builds a snapshot with ten one-unit bids below 100 and ten
// asks above, one bucket each at width 1.
func tenLevelBook() *model.OrderBookSnapshot {
	bids := make(map[string]string)
	asks := make(map[string]string)
	for i := 0; i < 10; i++ {
		bids[strconv.Itoa(99-i)] = "1"
		asks[strconv.Itoa(101+i)] = "1"
	}
	return &model.OrderBookSnapshot{Bids: bids, Asks: asks}
}

func newTestService(feed *stubFeed, book *stubBook, gw *stubGateway, repo *stubRepo, class2 []float64) *Service {
	tracker := service.NewPositionTracker()
	trader := service.NewTradeService(service.TradeConfig{
		Symbol:         "BTCUSDT",
		OrderNotional:  dec("100"),
		InitialStopPct: dec("2"),
		SettleWait:     0,
	}, gw, tracker, repo, stubNotifier{})

	return NewService(ServiceDeps{
		Symbol:       "BTCUSDT",
		PollInterval: time.Millisecond,
		RetryDelay:   time.Millisecond,
		Feed:         feed,
		Book:         book,
		Aggregator:   domainservice.NewClusterAggregator(dec("1"), dec("0.01")),
		Selector:     service.NewClusterSelector(&stubModel{class2: class2}),
		Trader:       trader,
		Repo:         repo,
		Sink:         stubSink{},
	})
}

func TestCycleOpensOnLongTouch(t *testing.T) {
	// top-ranked candidates sit at 99 (long) and 101 (short); the feed walks
	// the price down through the long level
	feed := &stubFeed{queue: []decimal.Decimal{dec("100"), dec("100"), dec("98.9")}}
	book := &stubBook{snapshot: tenLevelBook()}
	gw := &stubGateway{}
	repo := &stubRepo{}
	class2 := []float64{0.9, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}

	svc := newTestService(feed, book, gw, repo, class2)
	if err := svc.cycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if len(gw.orders) != 1 || gw.orders[0] != model.SideLong {
		t.Fatalf("expected one long open, got %v", gw.orders)
	}
	if len(gw.stops) != 1 {
		t.Errorf("expected an initial stop, got %v", gw.stops)
	}
	if repo.prices == 0 {
		t.Error("reference price was not journaled")
	}
	if len(repo.signals) != 2 {
		t.Errorf("expected both sides journaled as signals, got %v", repo.signals)
	}
	if repo.trades != 1 {
		t.Errorf("expected one journaled trade, got %d", repo.trades)
	}
}

func TestCycleOpensOnShortTouch(t *testing.T) {
	feed := &stubFeed{queue: []decimal.Decimal{dec("100"), dec("100"), dec("101.2")}}
	book := &stubBook{snapshot: tenLevelBook()}
	gw := &stubGateway{}
	repo := &stubRepo{}
	class2 := []float64{0.9, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}

	svc := newTestService(feed, book, gw, repo, class2)
	if err := svc.cycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if len(gw.orders) != 1 || gw.orders[0] != model.SideShort {
		t.Fatalf("expected one short open, got %v", gw.orders)
	}
}

func TestCycleThinBook(t *testing.T) {
	book := &stubBook{snapshot: &model.OrderBookSnapshot{
		Bids: map[string]string{"99": "1", "98": "1"},
		Asks: map[string]string{"101": "1", "102": "1"},
	}}
	feed := &stubFeed{queue: []decimal.Decimal{dec("100")}}
	svc := newTestService(feed, book, &stubGateway{}, &stubRepo{}, []float64{0.9, 0.1})

	err := svc.cycle(context.Background())
	if !errors.Is(err, errThinBook) {
		t.Errorf("expected thin-book error, got %v", err)
	}
}

func TestCycleBookUnavailable(t *testing.T) {
	book := &stubBook{err: errors.New("connection refused")}
	feed := &stubFeed{queue: []decimal.Decimal{dec("100")}}
	svc := newTestService(feed, book, &stubGateway{}, &stubRepo{}, nil)

	err := svc.cycle(context.Background())
	if !errors.Is(err, errNoBook) {
		t.Errorf("expected book error, got %v", err)
	}
}

func TestCycleNoPrice(t *testing.T) {
	feed := &stubFeed{}
	svc := newTestService(feed, &stubBook{snapshot: tenLevelBook()}, &stubGateway{}, &stubRepo{}, nil)

	err := svc.cycle(context.Background())
	if !errors.Is(err, errNoPrice) {
		t.Errorf("expected price error, got %v", err)
	}
}

func TestCycleInconclusiveModel(t *testing.T) {
	// every candidate scores zero, both sides come back empty-handed
	feed := &stubFeed{queue: []decimal.Decimal{dec("100")}}
	svc := newTestService(feed, &stubBook{snapshot: tenLevelBook()}, &stubGateway{}, &stubRepo{}, make([]float64, 10))

	err := svc.cycle(context.Background())
	if !errors.Is(err, errInconclusive) {
		t.Errorf("expected inconclusive error, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	feed := &stubFeed{} // always failing: Run keeps retrying until cancelled
	svc := newTestService(feed, &stubBook{snapshot: tenLevelBook()}, &stubGateway{}, &stubRepo{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

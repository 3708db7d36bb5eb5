package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
)

// MockGateway scripts the execution venue. Prices can be a queue so a test
// drives successive reads.
type MockGateway struct {
	mu sync.Mutex

	Filters      model.InstrumentFilters
	FiltersErr   error
	Prices       []decimal.Decimal // consumed one per LastPrice call, last value sticks
	PriceErr     error
	Positions    []model.Position
	// PositionsAfterOrder replaces Positions once an order has been placed,
	// for tests that exercise the post-fill read-back.
	PositionsAfterOrder []model.Position
	PositionsErr        error
	OrderErr            error
	StopErr             error

	ordered bool

	PlacedOrders []placedOrder
	Stops        []decimal.Decimal
}

type placedOrder struct {
	Symbol string
	Side   model.Side
	Qty    decimal.Decimal
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Filters: model.InstrumentFilters{
			TickSize: decimal.RequireFromString("0.5"),
			QtyStep:  decimal.RequireFromString("0.001"),
		},
	}
}

func (m *MockGateway) InstrumentFilters(ctx context.Context, symbol string) (model.InstrumentFilters, error) {
	if m.FiltersErr != nil {
		return model.InstrumentFilters{}, m.FiltersErr
	}
	return m.Filters, nil
}

func (m *MockGateway) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PriceErr != nil {
		return decimal.Zero, m.PriceErr
	}
	if len(m.Prices) == 0 {
		return decimal.Zero, errors.New("no scripted price")
	}
	p := m.Prices[0]
	if len(m.Prices) > 1 {
		m.Prices = m.Prices[1:]
	}
	return p, nil
}

func (m *MockGateway) OpenPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	positions := m.Positions
	if m.ordered && m.PositionsAfterOrder != nil {
		positions = m.PositionsAfterOrder
	}
	if symbol == "" {
		return positions, nil
	}
	var out []model.Position
	for _, p := range positions {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockGateway) PlaceMarketOrder(ctx context.Context, symbol string, side model.Side, qty decimal.Decimal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OrderErr != nil {
		return "", m.OrderErr
	}
	m.PlacedOrders = append(m.PlacedOrders, placedOrder{Symbol: symbol, Side: side, Qty: qty})
	m.ordered = true
	return "order-1", nil
}

func (m *MockGateway) SetTradingStop(ctx context.Context, symbol string, stopPrice decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StopErr != nil {
		return m.StopErr
	}
	m.Stops = append(m.Stops, stopPrice)
	return nil
}

var _ port.ExchangeGateway = (*MockGateway)(nil)

// MockRepo records journal writes in memory.
type MockRepo struct {
	mu              sync.Mutex
	Trades          []string
	ProtectionMoves []float64
	Signals         []string
}

func (m *MockRepo) UpsertLatestPrice(ctx context.Context, venue, symbol string, price float64, ts int64) error {
	return nil
}

func (m *MockRepo) InsertSignal(ctx context.Context, ts int64, symbol, side string, price, volume float64, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Signals = append(m.Signals, side)
	return nil
}

func (m *MockRepo) InsertTrade(ctx context.Context, id string, ts int64, symbol, side string, qty, entryPrice, stopPrice float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, id)
	return nil
}

func (m *MockRepo) InsertProtectionMove(ctx context.Context, ts int64, symbol, side string, level, stopPrice float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProtectionMoves = append(m.ProtectionMoves, level)
	return nil
}

func (m *MockRepo) Close() error { return nil }

var _ port.Repository = (*MockRepo)(nil)

// MockNotifier collects sent titles.
type MockNotifier struct {
	mu     sync.Mutex
	Titles []string
}

func (m *MockNotifier) Name() string { return "mock" }

func (m *MockNotifier) Send(ctx context.Context, title, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Titles = append(m.Titles, title)
	return nil
}

var _ port.Notifier = (*MockNotifier)(nil)

// MockModel scores rows with a fixed class-2 probability per row index.
type MockModel struct {
	Names      []string
	Class2     []float64
	PredictErr error
}

func (m *MockModel) FeatureNames() []string {
	if m.Names != nil {
		return m.Names
	}
	return port.FeatureSchema()
}

func (m *MockModel) PredictProba(rows [][]float64) ([][]float64, error) {
	if m.PredictErr != nil {
		return nil, m.PredictErr
	}
	out := make([][]float64, len(rows))
	for i := range rows {
		p2 := 0.0
		if i < len(m.Class2) {
			p2 = m.Class2[i]
		}
		out[i] = []float64{(1 - p2) / 2, (1 - p2) / 2, p2}
	}
	return out, nil
}

var _ port.ScoringModel = (*MockModel)(nil)

// MockFeed returns prices from a queue; the last value sticks.
type MockFeed struct {
	mu    sync.Mutex
	Queue []decimal.Decimal
	Errs  []error // consumed before Queue; nil entries mean success
	Calls int
}

func (m *MockFeed) Name() string { return "mockfeed" }

func (m *MockFeed) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return decimal.Zero, err
		}
	}
	if len(m.Queue) == 0 {
		return decimal.Zero, errors.New("no scripted price")
	}
	p := m.Queue[0]
	if len(m.Queue) > 1 {
		m.Queue = m.Queue[1:]
	}
	return p, nil
}

var _ port.ReferencePriceFeed = (*MockFeed)(nil)

// MockSink swallows output.
type MockSink struct {
	mu    sync.Mutex
	Lines []string
}

func (m *MockSink) WriteLive(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lines = append(m.Lines, line)
	return nil
}

func (m *MockSink) WriteEvent(ts time.Time, line string) error { return nil }
func (m *MockSink) NewLine() error                             { return nil }

var _ port.Sink = (*MockSink)(nil)

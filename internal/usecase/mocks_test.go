package usecase_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockGateway is an in-memory order gateway recording every call.
type MockGateway struct {
	mu sync.Mutex

	Orders    []*domain.Order
	ListErr   error
	CancelErr error
	// PlaceErrs is consumed one entry per PlaceStopLimitSell call; missing entries succeed.
	PlaceErrs []error

	Calls     []string
	Cancelled []int64
	Placed    []domain.StopLimitRequest
	nextID    int64
}

func (m *MockGateway) ListOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "list")
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Orders, nil
}

func (m *MockGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "cancel")
	if m.CancelErr != nil {
		return m.CancelErr
	}
	m.Cancelled = append(m.Cancelled, orderID)
	return nil
}

func (m *MockGateway) PlaceStopLimitSell(ctx context.Context, req domain.StopLimitRequest) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "place")
	m.Placed = append(m.Placed, req)

	if len(m.PlaceErrs) > 0 {
		err := m.PlaceErrs[0]
		m.PlaceErrs = m.PlaceErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	m.nextID++
	return &domain.Order{
		Symbol:        req.Symbol,
		OrderID:       1000 + m.nextID,
		ClientOrderID: req.ClientOrderID,
		Side:          domain.SideSell,
		Type:          "STOP_LOSS_LIMIT",
		Price:         req.LimitPrice,
		StopPrice:     req.StopPrice,
		OrigQty:       req.Quantity,
	}, nil
}

func (m *MockGateway) SetOrder(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o == nil {
		m.Orders = nil
		return
	}
	m.Orders = []*domain.Order{o}
}

type MockJournal struct {
	mu      sync.Mutex
	Records []*domain.ReplacementRecord
	Trades  []*domain.OrderTrade
}

func (j *MockJournal) SaveReplacement(ctx context.Context, rec *domain.ReplacementRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Records = append(j.Records, rec)
	return nil
}

func (j *MockJournal) ListReplacements(ctx context.Context, limit int) ([]*domain.ReplacementRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Records, nil
}

func (j *MockJournal) SaveOrderTrade(ctx context.Context, trade *domain.OrderTrade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Trades = append(j.Trades, trade)
	return nil
}

func (j *MockJournal) ListOrderTrades(ctx context.Context, limit int) ([]*domain.OrderTrade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Trades, nil
}

type MockMetrics struct {
	mu            sync.Mutex
	Ticks         int
	Replacements  map[domain.ReplacementOutcome]int
	QueryFailures int
	AccountEvents map[domain.AccountEventType]int
	LastWatermark float64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Replacements:  make(map[domain.ReplacementOutcome]int),
		AccountEvents: make(map[domain.AccountEventType]int),
	}
}

func (m *MockMetrics) ObserveTick(symbol string, price, watermark float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ticks++
	m.LastWatermark = watermark
}

func (m *MockMetrics) IncReplacement(outcome domain.ReplacementOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replacements[outcome]++
}

func (m *MockMetrics) IncOrderQueryFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryFailures++
}

func (m *MockMetrics) IncAccountEvent(eventType domain.AccountEventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccountEvents[eventType]++
}

type fakeMarketStream struct {
	ticks  chan domain.Ticker
	errs   chan error
	subErr error
}

func newFakeMarketStream() *fakeMarketStream {
	return &fakeMarketStream{
		ticks: make(chan domain.Ticker, 16),
		errs:  make(chan error, 1),
	}
}

func (f *fakeMarketStream) SubscribeTicker(ctx context.Context, symbol string) (<-chan domain.Ticker, <-chan error, error) {
	if f.subErr != nil {
		return nil, nil, f.subErr
	}
	return f.ticks, f.errs, nil
}

type fakeAccountStream struct {
	events chan domain.AccountEvent
	errs   chan error
	subErr error
}

func newFakeAccountStream() *fakeAccountStream {
	return &fakeAccountStream{
		events: make(chan domain.AccountEvent, 16),
		errs:   make(chan error, 1),
	}
}

func (f *fakeAccountStream) SubscribeAccountEvents(ctx context.Context) (<-chan domain.AccountEvent, <-chan error, error) {
	if f.subErr != nil {
		return nil, nil, f.subErr
	}
	return f.events, f.errs, nil
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func stopOrder(id int64, price, stop, qty string) *domain.Order {
	return &domain.Order{
		Symbol:    "BTCUSDT",
		OrderID:   id,
		Side:      domain.SideSell,
		Type:      "STOP_LOSS_LIMIT",
		Status:    "NEW",
		Price:     dec(price),
		StopPrice: dec(stop),
		OrigQty:   dec(qty),
	}
}

func tick(symbol, price string) domain.Ticker {
	return domain.Ticker{Symbol: symbol, ClosePrice: dec(price)}
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/trailing_stop/internal/domain"
	"github.com/vitos/trailing_stop/internal/usecase"
	"go.uber.org/zap"
)

type loopFixture struct {
	loop    *usecase.PriceFeedLoop
	gw      *MockGateway
	metrics *MockMetrics
	stream  *fakeMarketStream
}

func newLoopFixture(t *testing.T, margin string, logger *zap.Logger) *loopFixture {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	gw := &MockGateway{}
	metrics := NewMockMetrics()
	stream := newFakeMarketStream()
	session := domain.Session{Symbol: "BTCUSDT", Margin: dec(margin)}
	require.NoError(t, session.Validate())

	oracle := usecase.NewOrderOracle(gw, logger)
	replacer := usecase.NewStopLossReplacer(gw, nil, metrics, usecase.ReplacerConfig{PricePrecision: 7, RestoreAttempts: 1}, logger)
	return &loopFixture{
		loop:    usecase.NewPriceFeedLoop(session, stream, oracle, replacer, metrics, logger),
		gw:      gw,
		metrics: metrics,
		stream:  stream,
	}
}

func TestPriceFeedLoop_ReplacementFires(t *testing.T) {
	f := newLoopFixture(t, "0.01", nil)
	f.gw.SetOrder(stopOrder(42, "98", "100", "0.5"))

	d := f.loop.HandleTick(context.Background(), tick("BTCUSDT", "103"))

	require.NoError(t, d.Err)
	assert.True(t, d.MarginAmount.Equal(dec("1.03")))
	assert.True(t, d.CandidateStop.Equal(dec("101.97")))
	assert.InDelta(t, 101.97, d.Watermark, 1e-9)
	assert.True(t, d.Triggered)
	require.NotNil(t, d.Result)
	assert.Equal(t, domain.OutcomeReplaced, d.Result.Outcome)

	require.Len(t, f.gw.Placed, 1)
	assert.True(t, f.gw.Placed[0].StopPrice.Equal(dec("101.97")), "stop %s", f.gw.Placed[0].StopPrice)
	assert.True(t, f.gw.Placed[0].LimitPrice.Equal(dec("99.97")), "limit %s", f.gw.Placed[0].LimitPrice)
	assert.Equal(t, []int64{42}, f.gw.Cancelled)
}

func TestPriceFeedLoop_KeepStopLoss(t *testing.T) {
	f := newLoopFixture(t, "0.01", nil)
	f.gw.SetOrder(stopOrder(42, "100", "102", "0.5"))

	d := f.loop.HandleTick(context.Background(), tick("BTCUSDT", "100.5"))

	require.NoError(t, d.Err)
	assert.False(t, d.Triggered)
	assert.True(t, d.MarginAmount.Equal(dec("1.005")))
	assert.InDelta(t, 99.495, d.Watermark, 1e-9)
	assert.InDelta(t, 99.495, f.loop.Watermark(), 1e-9)
	assert.Equal(t, []string{"list"}, f.gw.Calls)
}

func TestPriceFeedLoop_TriggerThreshold(t *testing.T) {
	tests := []struct {
		name   string
		margin string
		entry  string
		price  string
		want   bool
	}{
		{"well above band", "0.01", "98", "103", true},
		{"inside band", "0.01", "100", "100.5", false},
		{"exactly one band is not enough", "0.01", "99", "100", false},
		{"just past one band", "0.01", "98.99", "100", true},
		{"price below entry", "0.05", "100", "90", false},
		{"wide margin", "0.2", "80", "101", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoopFixture(t, tt.margin, nil)
			f.gw.SetOrder(stopOrder(1, tt.entry, tt.entry, "1"))

			d := f.loop.HandleTick(context.Background(), tick("BTCUSDT", tt.price))
			assert.Equal(t, tt.want, d.Triggered)

			p := dec(tt.price)
			expected := p.Sub(dec(tt.entry)).GreaterThan(p.Mul(dec(tt.margin)))
			assert.Equal(t, expected, d.Triggered)
		})
	}
}

func TestPriceFeedLoop_MonotonicWatermark(t *testing.T) {
	f := newLoopFixture(t, "0.1", nil)
	// entry far above the market keeps replacement from firing
	f.gw.SetOrder(stopOrder(1, "1000", "1001", "1"))

	prices := []string{"100", "110", "105", "120", "90"}
	want := []float64{90, 99, 99, 108, 108}

	prev := 0.0
	for i, p := range prices {
		d := f.loop.HandleTick(context.Background(), tick("BTCUSDT", p))
		assert.False(t, d.Triggered)
		assert.InDelta(t, want[i], d.Watermark, 1e-9, "tick %d", i)
		assert.GreaterOrEqual(t, d.Watermark, prev)
		prev = d.Watermark
	}
}

func TestPriceFeedLoop_ReplacementUsesWatermark(t *testing.T) {
	f := newLoopFixture(t, "0.01", nil)
	f.gw.SetOrder(stopOrder(1, "1000", "1001", "1"))
	f.loop.HandleTick(context.Background(), tick("BTCUSDT", "120"))

	f.gw.SetOrder(stopOrder(2, "98", "100", "1"))
	d := f.loop.HandleTick(context.Background(), tick("BTCUSDT", "103"))

	require.True(t, d.Triggered)
	assert.InDelta(t, 118.8, d.Watermark, 1e-9)
	require.Len(t, f.gw.Placed, 1)
	assert.True(t, f.gw.Placed[0].StopPrice.Equal(dec("118.8")), "stop %s", f.gw.Placed[0].StopPrice)
	assert.True(t, f.gw.Placed[0].LimitPrice.Equal(dec("116.8")), "limit %s", f.gw.Placed[0].LimitPrice)
}

func TestPriceFeedLoop_OrderNotFoundOnce(t *testing.T) {
	logger, logs := observedLogger()
	f := newLoopFixture(t, "0.01", logger)
	ctx := context.Background()

	f.gw.SetOrder(stopOrder(1, "1000", "1001", "1"))
	d := f.loop.HandleTick(ctx, tick("BTCUSDT", "100"))
	assert.Equal(t, usecase.TransitionAppeared, d.Transition)
	watermark := f.loop.Watermark()

	f.gw.SetOrder(nil)
	d = f.loop.HandleTick(ctx, tick("BTCUSDT", "150"))
	assert.Equal(t, usecase.TransitionVanished, d.Transition)
	d = f.loop.HandleTick(ctx, tick("BTCUSDT", "160"))
	assert.Equal(t, usecase.TransitionNone, d.Transition)

	assert.Equal(t, 1, logs.FilterMessage("Order not found").Len())
	assert.Equal(t, watermark, f.loop.Watermark())
	assert.False(t, f.loop.Status().OrderPresent)
	assert.Empty(t, f.gw.Placed)
}

func TestPriceFeedLoop_NoOrderFromStart(t *testing.T) {
	logger, logs := observedLogger()
	f := newLoopFixture(t, "0.01", logger)

	f.loop.HandleTick(context.Background(), tick("BTCUSDT", "100"))
	f.loop.HandleTick(context.Background(), tick("BTCUSDT", "101"))

	assert.Zero(t, logs.FilterMessage("Order not found").Len())
	assert.Zero(t, f.loop.Watermark())
}

func TestPriceFeedLoop_QueryFailureKeepsPresence(t *testing.T) {
	logger, logs := observedLogger()
	f := newLoopFixture(t, "0.01", logger)
	ctx := context.Background()

	f.gw.SetOrder(stopOrder(1, "1000", "1001", "1"))
	f.loop.HandleTick(ctx, tick("BTCUSDT", "100"))

	f.gw.ListErr = errors.New("timeout")
	d := f.loop.HandleTick(ctx, tick("BTCUSDT", "200"))
	assert.ErrorIs(t, d.Err, domain.ErrQueryFailed)
	assert.Equal(t, usecase.TransitionNone, d.Transition)
	assert.True(t, f.loop.Status().OrderPresent)
	assert.InDelta(t, 99, f.loop.Watermark(), 1e-9)
	assert.Equal(t, 1, f.metrics.QueryFailures)
	assert.Zero(t, logs.FilterMessage("Order not found").Len())

	f.gw.ListErr = nil
	f.gw.SetOrder(nil)
	f.loop.HandleTick(ctx, tick("BTCUSDT", "200"))
	assert.Equal(t, 1, logs.FilterMessage("Order not found").Len())
}

func TestPriceFeedLoop_RunProcessesMatchingTicks(t *testing.T) {
	f := newLoopFixture(t, "0.01", nil)
	f.gw.SetOrder(stopOrder(1, "1000", "1001", "1"))

	f.stream.ticks <- tick("ETHUSDT", "5000")
	f.stream.ticks <- tick("BTCUSDT", "100")
	f.stream.ticks <- tick("BTCUSDT", "110")
	close(f.stream.ticks)

	err := f.loop.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrStreamClosed)

	status := f.loop.Status()
	assert.Equal(t, uint64(2), status.Ticks)
	assert.InDelta(t, 110, status.LastPrice, 1e-9)
	assert.InDelta(t, 108.9, status.Watermark, 1e-9)
	assert.Equal(t, "BTCUSDT", status.Symbol)
}

func TestPriceFeedLoop_RunStopsOnContextCancel(t *testing.T) {
	f := newLoopFixture(t, "0.01", nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestPriceFeedLoop_RunFailures(t *testing.T) {
	t.Run("subscribe", func(t *testing.T) {
		f := newLoopFixture(t, "0.01", nil)
		f.stream.subErr = errors.New("dial tcp: refused")

		err := f.loop.Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrStreamFailed)
	})

	t.Run("stream error", func(t *testing.T) {
		f := newLoopFixture(t, "0.01", nil)
		f.stream.errs <- errors.New("connection reset")

		err := f.loop.Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrStreamFailed)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestPriceFeedLoop_RunClosedStream(t *testing.T) {
	f := newLoopFixture(t, "0.01", nil)
	close(f.stream.ticks)

	err := f.loop.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrStreamClosed)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
)

// TickDecision describes what one decision cycle saw and did.
type TickDecision struct {
	Price         decimal.Decimal
	MarginAmount  decimal.Decimal
	CandidateStop decimal.Decimal
	Watermark     float64
	Order         *domain.Order
	Transition    Transition
	Triggered     bool
	Result        *ReplacementResult
	Err           error
}

type Status struct {
	Symbol       string  `json:"symbol"`
	Margin       string  `json:"margin"`
	LastPrice    float64 `json:"last_price"`
	Watermark    float64 `json:"watermark"`
	OrderPresent bool    `json:"order_present"`
	Ticks        uint64  `json:"ticks"`
}

// PriceFeedLoop runs one trailing-stop decision cycle per ticker event, strictly
// in arrival order.
type PriceFeedLoop struct {
	session  domain.Session
	stream   domain.MarketStream
	oracle   *OrderOracle
	replacer *StopLossReplacer
	metrics  Metrics
	logger   *zap.Logger

	watermark TrailingWatermark
	presence  OrderPresence
	lastPrice atomic.Uint64
	ticks     atomic.Uint64
}

func NewPriceFeedLoop(session domain.Session, stream domain.MarketStream, oracle *OrderOracle, replacer *StopLossReplacer, metrics Metrics, logger *zap.Logger) *PriceFeedLoop {
	return &PriceFeedLoop{
		session:  session,
		stream:   stream,
		oracle:   oracle,
		replacer: replacer,
		metrics:  metricsOrNop(metrics),
		logger:   logger,
	}
}

// Run subscribes to the ticker stream and processes events until ctx is done.
// A subscribe failure or a dropped stream is returned as an error; a cancelled
// context returns nil once the in-flight tick has completed.
func (l *PriceFeedLoop) Run(ctx context.Context) error {
	ticks, errs, err := l.stream.SubscribeTicker(ctx, l.session.Symbol)
	if err != nil {
		return fmt.Errorf("%w: subscribe %s: %w", domain.ErrStreamFailed, l.session.Symbol, err)
	}
	l.logger.Info("Price feed started",
		zap.String("symbol", l.session.Symbol),
		zap.String("margin", l.session.Margin.String()))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Price feed stopped", zap.String("symbol", l.session.Symbol))
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %s: %w", domain.ErrStreamFailed, l.session.Symbol, err)
		case t, ok := <-ticks:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: %s", domain.ErrStreamClosed, l.session.Symbol)
			}
			if t.Symbol != l.session.Symbol {
				continue
			}
			l.HandleTick(ctx, t)
		}
	}
}

// HandleTick runs a full decision cycle for one ticker snapshot.
func (l *PriceFeedLoop) HandleTick(ctx context.Context, t domain.Ticker) TickDecision {
	price := t.ClosePrice
	marginAmount := price.Mul(l.session.Margin)
	candidate := price.Sub(marginAmount)

	d := TickDecision{
		Price:         price,
		MarginAmount:  marginAmount,
		CandidateStop: candidate,
		Watermark:     l.watermark.Load(),
	}

	l.ticks.Add(1)
	l.lastPrice.Store(math.Float64bits(price.InexactFloat64()))
	l.logger.Info("Tick",
		zap.String("symbol", t.Symbol),
		zap.String("close", price.String()),
		zap.String("recommended_stop", candidate.String()))

	order, err := l.oracle.GetOpenOrder(ctx, l.session.Symbol)
	if err != nil {
		// Not evidence that the order is gone; leave presence as it was.
		l.metrics.IncOrderQueryFailure()
		l.logger.Warn("Skipping tick, open order query failed",
			zap.String("symbol", l.session.Symbol),
			zap.Error(err))
		d.Err = err
		l.metrics.ObserveTick(l.session.Symbol, price.InexactFloat64(), d.Watermark)
		return d
	}

	d.Order = order
	d.Transition = l.presence.Observe(order != nil)

	if order == nil {
		if d.Transition == TransitionVanished {
			l.logger.Warn("Order not found", zap.String("symbol", l.session.Symbol))
		}
		l.metrics.ObserveTick(l.session.Symbol, price.InexactFloat64(), d.Watermark)
		return d
	}

	if d.Transition == TransitionAppeared {
		l.logger.Info("Tracking open order",
			zap.String("symbol", order.Symbol),
			zap.Int64("order_id", order.OrderID),
			zap.String("price", order.Price.String()),
			zap.String("stop", order.StopPrice.String()))
	}

	d.Watermark, _ = l.watermark.Raise(candidate.InexactFloat64())
	l.metrics.ObserveTick(l.session.Symbol, price.InexactFloat64(), d.Watermark)

	diff := price.Sub(order.Price)
	if !diff.GreaterThan(marginAmount) {
		l.logger.Debug("Keep stop loss",
			zap.String("symbol", order.Symbol),
			zap.String("diff", diff.String()),
			zap.String("margin_amount", marginAmount.String()))
		return d
	}

	d.Triggered = true
	d.Result, d.Err = l.replacer.Replace(ctx, order, d.Watermark, price)
	switch {
	case d.Err == nil:
	case errors.Is(d.Err, domain.ErrRestoreFailed):
		l.logger.Error("Symbol left without stop loss until the next trigger",
			zap.String("symbol", order.Symbol))
	case errors.Is(d.Err, domain.ErrCancelFailed):
		l.logger.Warn("Existing stop loss kept", zap.String("symbol", order.Symbol))
	}
	return d
}

func (l *PriceFeedLoop) Watermark() float64 {
	return l.watermark.Load()
}

func (l *PriceFeedLoop) Status() Status {
	return Status{
		Symbol:       l.session.Symbol,
		Margin:       l.session.Margin.String(),
		LastPrice:    math.Float64frombits(l.lastPrice.Load()),
		Watermark:    l.watermark.Load(),
		OrderPresent: l.presence.State() == OrderPresent,
		Ticks:        l.ticks.Load(),
	}
}

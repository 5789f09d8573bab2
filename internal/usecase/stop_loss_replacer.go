package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
)

type ReplacerConfig struct {
	PricePrecision int32
	// RestoreAttempts is how many times the original order is placed again when
	// the replacement could not be created. Zero leaves the symbol unprotected.
	RestoreAttempts int
	RestoreBackoff  time.Duration
}

func DefaultReplacerConfig() ReplacerConfig {
	return ReplacerConfig{
		PricePrecision:  DefaultPricePrecision,
		RestoreAttempts: 2,
		RestoreBackoff:  500 * time.Millisecond,
	}
}

type ReplacementResult struct {
	Outcome  domain.ReplacementOutcome
	OldOrder *domain.Order
	// NewOrder is the order resting after the attempt: the replacement, the
	// restored original, or nil.
	NewOrder *domain.Order
	NewStop  decimal.Decimal
	NewLimit decimal.Decimal
}

// StopLossReplacer swaps the resting stop order for a tighter one: cancel first,
// create only after a successful cancel.
type StopLossReplacer struct {
	gateway domain.OrderGateway
	journal domain.ReplacementRepository
	metrics Metrics
	logger  *zap.Logger
	cfg     ReplacerConfig

	newClientOrderID func() string
	sleep            func(ctx context.Context, d time.Duration) error
}

func NewStopLossReplacer(gateway domain.OrderGateway, journal domain.ReplacementRepository, metrics Metrics, cfg ReplacerConfig, logger *zap.Logger) *StopLossReplacer {
	return &StopLossReplacer{
		gateway:          gateway,
		journal:          journal,
		metrics:          metricsOrNop(metrics),
		logger:           logger,
		cfg:              cfg,
		newClientOrderID: func() string { return "trail-" + uuid.NewString() },
		sleep:            sleepCtx,
	}
}

// StopLimitFor computes the replacement prices for order: the stop is moved to
// newStop and the limit keeps the order's original stop-to-limit spread.
// Both are truncated to the configured precision.
func (r *StopLossReplacer) StopLimitFor(order *domain.Order, newStop float64) (stop, limit decimal.Decimal) {
	target := decimal.NewFromFloat(newStop)
	stop = TruncatePrice(target, r.cfg.PricePrecision)
	limit = TruncatePrice(target.Sub(order.Spread()), r.cfg.PricePrecision)
	return stop, limit
}

// Replace cancels order and places a stop-limit sell at newStop with the same
// spread and quantity. Failures are returned as domain error kinds; the result
// always describes what is resting on the exchange afterwards.
func (r *StopLossReplacer) Replace(ctx context.Context, order *domain.Order, newStop float64, tickPrice decimal.Decimal) (*ReplacementResult, error) {
	stop, limit := r.StopLimitFor(order, newStop)
	res := &ReplacementResult{
		OldOrder: order,
		NewStop:  stop,
		NewLimit: limit,
	}

	if !stop.IsPositive() || !limit.IsPositive() {
		err := fmt.Errorf("%w: stop %s limit %s", domain.ErrInvalidStop, stop, limit)
		res.Outcome = domain.OutcomeRejected
		res.NewOrder = order
		r.finish(ctx, tickPrice, res, err)
		return res, err
	}

	r.logger.Info("Updating stop loss",
		zap.String("symbol", order.Symbol),
		zap.Int64("order_id", order.OrderID),
		zap.String("old_stop", order.StopPrice.String()),
		zap.String("new_stop", stop.String()),
		zap.String("new_limit", limit.String()),
		zap.String("quantity", order.OrigQty.String()))

	if err := r.gateway.CancelOrder(ctx, order.Symbol, order.OrderID); err != nil {
		err = fmt.Errorf("%w: order %d: %w", domain.ErrCancelFailed, order.OrderID, err)
		res.Outcome = domain.OutcomeCancelFailed
		res.NewOrder = order
		r.finish(ctx, tickPrice, res, err)
		return res, err
	}
	r.logger.Info("Current order cancelled",
		zap.String("symbol", order.Symbol),
		zap.Int64("order_id", order.OrderID),
		zap.String("price", order.Price.String()))

	// Once cancelled, create and restore run to completion even on shutdown.
	ctx = context.WithoutCancel(ctx)

	placed, createErr := r.gateway.PlaceStopLimitSell(ctx, domain.StopLimitRequest{
		Symbol:        order.Symbol,
		Quantity:      order.OrigQty,
		LimitPrice:    limit,
		StopPrice:     stop,
		ClientOrderID: r.newClientOrderID(),
	})
	if createErr == nil {
		res.Outcome = domain.OutcomeReplaced
		res.NewOrder = placed
		r.finish(ctx, tickPrice, res, nil)
		return res, nil
	}

	r.logger.Error("Failed to create stop loss order, restoring previous order",
		zap.String("symbol", order.Symbol),
		zap.Int64("cancelled_order_id", order.OrderID),
		zap.Error(createErr))

	restored, restoreErr := r.restore(ctx, order)
	if restoreErr != nil {
		err := fmt.Errorf("%w: %w: create: %v, restore: %v", domain.ErrCreateFailed, domain.ErrRestoreFailed, createErr, restoreErr)
		res.Outcome = domain.OutcomeUnprotected
		r.finish(ctx, tickPrice, res, err)
		return res, err
	}

	err := fmt.Errorf("%w: %w", domain.ErrCreateFailed, createErr)
	res.Outcome = domain.OutcomeRestored
	res.NewOrder = restored
	r.finish(ctx, tickPrice, res, err)
	return res, err
}

// restore places the cancelled order again with its original prices.
func (r *StopLossReplacer) restore(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if r.cfg.RestoreAttempts <= 0 {
		return nil, errors.New("restore disabled")
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.RestoreAttempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(ctx, time.Duration(attempt-1)*r.cfg.RestoreBackoff); err != nil {
				return nil, err
			}
		}
		placed, err := r.gateway.PlaceStopLimitSell(ctx, domain.StopLimitRequest{
			Symbol:        order.Symbol,
			Quantity:      order.OrigQty,
			LimitPrice:    order.Price,
			StopPrice:     order.StopPrice,
			ClientOrderID: r.newClientOrderID(),
		})
		if err == nil {
			r.logger.Warn("Previous stop loss order restored",
				zap.String("symbol", order.Symbol),
				zap.Int("attempt", attempt),
				zap.String("stop", order.StopPrice.String()),
				zap.String("limit", order.Price.String()))
			return placed, nil
		}
		lastErr = err
		r.logger.Warn("Restore attempt failed",
			zap.String("symbol", order.Symbol),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, lastErr
}

func (r *StopLossReplacer) finish(ctx context.Context, tickPrice decimal.Decimal, res *ReplacementResult, err error) {
	r.metrics.IncReplacement(res.Outcome)

	switch res.Outcome {
	case domain.OutcomeReplaced:
		r.logger.Info("Stop loss updated",
			zap.String("symbol", res.OldOrder.Symbol),
			zap.String("stop", res.NewStop.String()),
			zap.String("limit", res.NewLimit.String()))
	case domain.OutcomeUnprotected:
		r.logger.Error("No stop loss order is resting",
			zap.String("symbol", res.OldOrder.Symbol),
			zap.Error(err))
	default:
		r.logger.Error("Stop loss update failed",
			zap.String("symbol", res.OldOrder.Symbol),
			zap.String("outcome", string(res.Outcome)),
			zap.Error(err))
	}

	if r.journal == nil {
		return
	}
	rec := &domain.ReplacementRecord{
		ID:         uuid.NewString(),
		Symbol:     res.OldOrder.Symbol,
		TickPrice:  tickPrice,
		OldOrderID: res.OldOrder.OrderID,
		OldStop:    res.OldOrder.StopPrice,
		OldLimit:   res.OldOrder.Price,
		NewStop:    res.NewStop,
		NewLimit:   res.NewLimit,
		Quantity:   res.OldOrder.OrigQty,
		Outcome:    res.Outcome,
		CreatedAt:  time.Now(),
	}
	if res.NewOrder != nil && res.NewOrder != res.OldOrder {
		rec.NewOrderID = res.NewOrder.OrderID
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := r.journal.SaveReplacement(context.WithoutCancel(ctx), rec); jerr != nil {
		r.logger.Error("Failed to journal replacement", zap.Error(jerr))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

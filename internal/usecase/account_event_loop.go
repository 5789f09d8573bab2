package usecase

import (
	"context"
	"fmt"

	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
)

// AccountEventLoop logs balance changes and order executions from the account
// stream. It never touches trailing state.
type AccountEventLoop struct {
	stream  domain.AccountStream
	journal domain.AccountEventRepository
	metrics Metrics
	logger  *zap.Logger
}

func NewAccountEventLoop(stream domain.AccountStream, journal domain.AccountEventRepository, metrics Metrics, logger *zap.Logger) *AccountEventLoop {
	return &AccountEventLoop{
		stream:  stream,
		journal: journal,
		metrics: metricsOrNop(metrics),
		logger:  logger,
	}
}

func (l *AccountEventLoop) Run(ctx context.Context) error {
	events, errs, err := l.stream.SubscribeAccountEvents(ctx)
	if err != nil {
		return fmt.Errorf("%w: account events: %w", domain.ErrStreamFailed, err)
	}
	l.logger.Info("Account event stream started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Account event stream stopped")
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: account events: %w", domain.ErrStreamFailed, err)
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: account events", domain.ErrStreamClosed)
			}
			l.HandleEvent(ctx, ev)
		}
	}
}

func (l *AccountEventLoop) HandleEvent(ctx context.Context, ev domain.AccountEvent) {
	l.metrics.IncAccountEvent(ev.Type)

	switch ev.Type {
	case domain.AccountEventBalanceSnapshot:
		for _, b := range ev.Balances {
			l.logger.Info("Balance",
				zap.String("asset", b.Asset),
				zap.String("free", b.Free.String()),
				zap.String("locked", b.Locked.String()))
		}
	case domain.AccountEventBalanceDelta:
		for _, b := range ev.Balances {
			l.logger.Info("Balance update",
				zap.String("asset", b.Asset),
				zap.String("delta", b.Delta.String()))
		}
	case domain.AccountEventOrderTrade:
		if ev.Trade == nil {
			return
		}
		tr := ev.Trade
		l.logger.Info("Order trade",
			zap.String("symbol", tr.Symbol),
			zap.String("side", string(tr.Side)),
			zap.String("price", tr.Price.String()),
			zap.String("execution_type", tr.ExecutionType),
			zap.String("status", tr.OrderStatus),
			zap.Int64("order_id", tr.OrderID))
		if l.journal != nil {
			if err := l.journal.SaveOrderTrade(ctx, tr); err != nil {
				l.logger.Error("Failed to journal order trade", zap.Error(err))
			}
		}
	default:
		l.logger.Debug("Ignoring account event", zap.String("type", string(ev.Type)))
	}
}

package usecase

import (
	"context"
	"fmt"

	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
)

// OrderOracle answers whether a symbol currently has a resting order.
type OrderOracle struct {
	gateway domain.OrderGateway
	logger  *zap.Logger
}

func NewOrderOracle(gateway domain.OrderGateway, logger *zap.Logger) *OrderOracle {
	return &OrderOracle{
		gateway: gateway,
		logger:  logger,
	}
}

// GetOpenOrder returns the first open order the exchange lists for symbol, or nil
// when there is none. At most one relevant order per symbol is assumed.
// A failed listing is reported as domain.ErrQueryFailed, never as "no order".
func (o *OrderOracle) GetOpenOrder(ctx context.Context, symbol string) (*domain.Order, error) {
	orders, err := o.gateway.ListOpenOrders(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrQueryFailed, symbol, err)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	if len(orders) > 1 {
		o.logger.Debug("Multiple open orders, using the first",
			zap.String("symbol", symbol),
			zap.Int("count", len(orders)),
			zap.Int64("order_id", orders[0].OrderID))
	}
	return orders[0], nil
}

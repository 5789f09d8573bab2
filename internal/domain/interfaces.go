package domain

import "context"

// OrderGateway is the subset of the exchange trading API the trailing engine uses.
type OrderGateway interface {
	ListOpenOrders(ctx context.Context, symbol string) ([]*Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	PlaceStopLimitSell(ctx context.Context, req StopLimitRequest) (*Order, error)
}

// MarketStream pushes ticker snapshots for one symbol.
// The error channel yields at most one error, after which both channels are closed.
type MarketStream interface {
	SubscribeTicker(ctx context.Context, symbol string) (<-chan Ticker, <-chan error, error)
}

// AccountStream pushes private account events (balances, order executions).
type AccountStream interface {
	SubscribeAccountEvents(ctx context.Context) (<-chan AccountEvent, <-chan error, error)
}

// ReplacementRepository journals stop replacement attempts.
type ReplacementRepository interface {
	SaveReplacement(ctx context.Context, rec *ReplacementRecord) error
	ListReplacements(ctx context.Context, limit int) ([]*ReplacementRecord, error)
}

// AccountEventRepository journals order executions seen on the account stream.
type AccountEventRepository interface {
	SaveOrderTrade(ctx context.Context, trade *OrderTrade) error
	ListOrderTrades(ctx context.Context, limit int) ([]*OrderTrade, error)
}

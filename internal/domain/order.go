package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order represents an open order as reported by the exchange.
// The engine never owns an Order beyond the tick it was queried on.
type Order struct {
	Symbol        string
	OrderID       int64
	ClientOrderID string
	Side          Side
	Type          string
	Status        string
	Price         decimal.Decimal // entry / reference (limit) price
	StopPrice     decimal.Decimal // stop trigger price
	OrigQty       decimal.Decimal
	CreatedAt     time.Time
}

// Spread is the gap the order keeps between its stop trigger and its limit price.
func (o *Order) Spread() decimal.Decimal {
	return o.StopPrice.Sub(o.Price)
}

// StopLimitRequest describes a new stop-limit sell order, good till cancelled.
type StopLimitRequest struct {
	Symbol        string
	Quantity      decimal.Decimal
	LimitPrice    decimal.Decimal
	StopPrice     decimal.Decimal
	ClientOrderID string
}

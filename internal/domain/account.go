package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountEventType string

const (
	AccountEventBalanceSnapshot AccountEventType = "balance_snapshot"
	AccountEventBalanceDelta    AccountEventType = "balance_delta"
	AccountEventOrderTrade      AccountEventType = "order_trade"
)

// AccountEvent is one message from the private account stream.
// Balances is set for balance events, Trade for order executions.
type AccountEvent struct {
	Type     AccountEventType
	Time     time.Time
	Balances []Balance
	Trade    *OrderTrade
}

type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
	// Delta is only populated for balance_delta events.
	Delta decimal.Decimal `json:"delta"`
}

// OrderTrade is an execution report for one of the account's orders.
type OrderTrade struct {
	Symbol        string          `json:"symbol"`
	OrderID       int64           `json:"order_id"`
	Side          Side            `json:"side"`
	OrderType     string          `json:"order_type"`
	Price         decimal.Decimal `json:"price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	LastPrice     decimal.Decimal `json:"last_price"`
	ExecutionType string          `json:"execution_type"`
	OrderStatus   string          `json:"order_status"`
	Time          time.Time       `json:"time"`
}

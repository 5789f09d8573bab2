package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is a single market-data snapshot. It is not retained past its tick.
type Ticker struct {
	Symbol     string          `json:"symbol"`
	ClosePrice decimal.Decimal `json:"close_price"`
	EventTime  time.Time       `json:"event_time"`
}

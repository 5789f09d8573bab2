package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/trailing_stop/internal/domain"
)

// encoding/json matches keys case-insensitively, so every payload struct
// declares both cases of any single-letter key pair Binance sends (c/C, p/P...).

type wsEventHeader struct {
	Event string `json:"e"`
	Time  int64  `json:"E"`
}

type wsTickerEvent struct {
	Event     string `json:"e"`
	Time      int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
	CloseTime int64  `json:"C"`
}

type wsBalance struct {
	Asset  string `json:"a"`
	Free   string `json:"f"`
	Locked string `json:"l"`
}

type wsAccountPosition struct {
	Balances []wsBalance `json:"B"`
}

type wsBalanceUpdate struct {
	Asset     string `json:"a"`
	Delta     string `json:"d"`
	ClearTime int64  `json:"T"`
}

type wsExecutionReport struct {
	Event             string `json:"e"`
	Time              int64  `json:"E"`
	Symbol            string `json:"s"`
	ClientOrderID     string `json:"c"`
	Side              string `json:"S"`
	OrderType         string `json:"o"`
	Quantity          string `json:"q"`
	Price             string `json:"p"`
	StopPrice         string `json:"P"`
	ExecutionType     string `json:"x"`
	OrderStatus       string `json:"X"`
	OrderID           int64  `json:"i"`
	LastQty           string `json:"l"`
	LastPrice         string `json:"L"`
	TransactTime      int64  `json:"T"`
	TradeID           int64  `json:"t"`
	OrigClientOrderID string `json:"C"`
	QuoteQty          string `json:"Q"`
	Ignore            int64  `json:"I"`
	CreationTime      int64  `json:"O"`
}

// decodeTicker returns nil without error for frames that are not 24hrTicker events.
func decodeTicker(message []byte) (*domain.Ticker, error) {
	var ev wsTickerEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return nil, err
	}
	if ev.Event != "24hrTicker" {
		return nil, nil
	}

	price, err := decimal.NewFromString(ev.Close)
	if err != nil {
		return nil, fmt.Errorf("ticker %s close %q: %w", ev.Symbol, ev.Close, err)
	}

	return &domain.Ticker{
		Symbol:     ev.Symbol,
		ClosePrice: price,
		EventTime:  time.UnixMilli(ev.Time),
	}, nil
}

// decodeAccountEvent returns nil without error for event types the bot ignores.
func decodeAccountEvent(message []byte) (*domain.AccountEvent, error) {
	var header wsEventHeader
	if err := json.Unmarshal(message, &header); err != nil {
		return nil, err
	}

	switch header.Event {
	case "outboundAccountPosition":
		var pos wsAccountPosition
		if err := json.Unmarshal(message, &pos); err != nil {
			return nil, err
		}
		ev := &domain.AccountEvent{
			Type: domain.AccountEventBalanceSnapshot,
			Time: time.UnixMilli(header.Time),
		}
		for _, bal := range pos.Balances {
			free, err := parseDecimal(bal.Free)
			if err != nil {
				return nil, fmt.Errorf("balance %s free: %w", bal.Asset, err)
			}
			locked, err := parseDecimal(bal.Locked)
			if err != nil {
				return nil, fmt.Errorf("balance %s locked: %w", bal.Asset, err)
			}
			ev.Balances = append(ev.Balances, domain.Balance{Asset: bal.Asset, Free: free, Locked: locked})
		}
		return ev, nil

	case "balanceUpdate":
		var upd wsBalanceUpdate
		if err := json.Unmarshal(message, &upd); err != nil {
			return nil, err
		}
		delta, err := parseDecimal(upd.Delta)
		if err != nil {
			return nil, fmt.Errorf("balance %s delta: %w", upd.Asset, err)
		}
		return &domain.AccountEvent{
			Type:     domain.AccountEventBalanceDelta,
			Time:     time.UnixMilli(header.Time),
			Balances: []domain.Balance{{Asset: upd.Asset, Delta: delta}},
		}, nil

	case "executionReport":
		var rep wsExecutionReport
		if err := json.Unmarshal(message, &rep); err != nil {
			return nil, err
		}
		trade, err := rep.toOrderTrade()
		if err != nil {
			return nil, err
		}
		return &domain.AccountEvent{
			Type:  domain.AccountEventOrderTrade,
			Time:  time.UnixMilli(header.Time),
			Trade: trade,
		}, nil
	}
	return nil, nil
}

func (r *wsExecutionReport) toOrderTrade() (*domain.OrderTrade, error) {
	price, err := parseDecimal(r.Price)
	if err != nil {
		return nil, fmt.Errorf("execution report price: %w", err)
	}
	stop, err := parseDecimal(r.StopPrice)
	if err != nil {
		return nil, fmt.Errorf("execution report stop price: %w", err)
	}
	qty, err := parseDecimal(r.Quantity)
	if err != nil {
		return nil, fmt.Errorf("execution report quantity: %w", err)
	}
	last, err := parseDecimal(r.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("execution report last price: %w", err)
	}

	return &domain.OrderTrade{
		Symbol:        r.Symbol,
		OrderID:       r.OrderID,
		Side:          domain.Side(r.Side),
		OrderType:     r.OrderType,
		Price:         price,
		StopPrice:     stop,
		Quantity:      qty,
		LastPrice:     last,
		ExecutionType: r.ExecutionType,
		OrderStatus:   r.OrderStatus,
		Time:          time.UnixMilli(r.TransactTime),
	}, nil
}

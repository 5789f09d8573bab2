package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
)

const (
	BinanceWSURL        = "wss://stream.binance.com:9443/ws"
	BinanceTestnetWSURL = "wss://testnet.binance.vision/ws"

	listenKeyKeepAlive = 30 * time.Minute
)

// BinanceAdapter talks to Binance spot: signed REST calls through go-binance and
// market / user-data streams over websocket.
type BinanceAdapter struct {
	client    *binance.Client
	wsURL     string
	dialer    *websocket.Dialer
	keepAlive time.Duration
	logger    *zap.Logger
}

func NewBinanceAdapter(apiKey, apiSecret, restURL, wsURL string, testnet bool, logger *zap.Logger) *BinanceAdapter {
	if testnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(apiKey, apiSecret)
	if restURL != "" {
		client.BaseURL = strings.TrimRight(restURL, "/")
	}

	if wsURL == "" {
		wsURL = BinanceWSURL
		if testnet {
			wsURL = BinanceTestnetWSURL
		}
	}

	return &BinanceAdapter{
		client: client,
		wsURL:  strings.TrimRight(wsURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		keepAlive: listenKeyKeepAlive,
		logger:    logger,
	}
}

// --- REST API ---

func (b *BinanceAdapter) ListOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	raw, err := b.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(raw))
	for _, o := range raw {
		order, err := toDomainOrder(o)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.OrderID, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (b *BinanceAdapter) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := b.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	return err
}

func (b *BinanceAdapter) PlaceStopLimitSell(ctx context.Context, req domain.StopLimitRequest) (*domain.Order, error) {
	svc := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeStopLossLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(req.Quantity.String()).
		Price(req.LimitPrice.String()).
		StopPrice(req.StopPrice.String())
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		Symbol:        resp.Symbol,
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Side:          domain.SideSell,
		Type:          string(resp.Type),
		Status:        string(resp.Status),
		Price:         req.LimitPrice,
		StopPrice:     req.StopPrice,
		OrigQty:       req.Quantity,
		CreatedAt:     time.UnixMilli(resp.TransactTime),
	}
	if order.Symbol == "" {
		order.Symbol = req.Symbol
	}
	return order, nil
}

// PricePrecision returns the number of decimals allowed by the symbol's PRICE_FILTER tick size.
func (b *BinanceAdapter) PricePrecision(ctx context.Context, symbol string) (int32, error) {
	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}
		pf := s.PriceFilter()
		if pf == nil {
			return 0, fmt.Errorf("%s has no price filter", symbol)
		}
		return precisionFromTickSize(pf.TickSize)
	}
	return 0, fmt.Errorf("symbol %s not found", symbol)
}

func (b *BinanceAdapter) startListenKey(ctx context.Context) (string, error) {
	return b.client.NewStartUserStreamService().Do(ctx)
}

func (b *BinanceAdapter) keepAliveListenKey(ctx context.Context, listenKey string) {
	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.client.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
				b.logger.Warn("Listen key keepalive failed", zap.Error(err))
			}
		}
	}
}

func (b *BinanceAdapter) closeListenKey(listenKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.NewCloseUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
		b.logger.Warn("Failed to close listen key", zap.Error(err))
	}
}

func toDomainOrder(o *binance.Order) (*domain.Order, error) {
	price, err := parseDecimal(o.Price)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	stop, err := parseDecimal(o.StopPrice)
	if err != nil {
		return nil, fmt.Errorf("stop price: %w", err)
	}
	qty, err := parseDecimal(o.OrigQuantity)
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}

	return &domain.Order{
		Symbol:        o.Symbol,
		OrderID:       o.OrderID,
		ClientOrderID: o.ClientOrderID,
		Side:          domain.Side(o.Side),
		Type:          string(o.Type),
		Status:        string(o.Status),
		Price:         price,
		StopPrice:     stop,
		OrigQty:       qty,
		CreatedAt:     time.UnixMilli(o.Time),
	}, nil
}

// parseDecimal treats an empty field as zero, as Binance omits unused prices.
func parseDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func precisionFromTickSize(tick string) (int32, error) {
	d, err := decimal.NewFromString(tick)
	if err != nil || !d.IsPositive() {
		return 0, fmt.Errorf("invalid tick size %q", tick)
	}
	s := d.String()
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0, nil
	}
	return int32(len(s) - idx - 1), nil
}

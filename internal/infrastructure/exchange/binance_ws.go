package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
)

// SubscribeTicker opens the <symbol>@ticker stream. Both channels are closed
// when the connection ends; errs only carries a read failure that happened
// while ctx was still live.
func (b *BinanceAdapter) SubscribeTicker(ctx context.Context, symbol string) (<-chan domain.Ticker, <-chan error, error) {
	conn, err := b.dial(ctx, strings.ToLower(symbol)+"@ticker")
	if err != nil {
		return nil, nil, err
	}

	ticks := make(chan domain.Ticker, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(ticks)
		b.readLoop(ctx, conn, errs, func(message []byte) {
			t, err := decodeTicker(message)
			if err != nil {
				b.logger.Warn("Skipping malformed ticker", zap.Error(err))
				return
			}
			if t == nil {
				return
			}
			select {
			case ticks <- *t:
			case <-ctx.Done():
			}
		})
	}()

	return ticks, errs, nil
}

// SubscribeAccountEvents starts a user-data stream. The listen key is kept
// alive while the stream runs and closed once it ends.
func (b *BinanceAdapter) SubscribeAccountEvents(ctx context.Context) (<-chan domain.AccountEvent, <-chan error, error) {
	listenKey, err := b.startListenKey(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start user stream: %w", err)
	}

	conn, err := b.dial(ctx, listenKey)
	if err != nil {
		b.closeListenKey(listenKey)
		return nil, nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	go b.keepAliveListenKey(streamCtx, listenKey)

	events := make(chan domain.AccountEvent, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer b.closeListenKey(listenKey)
		defer cancel()

		b.readLoop(streamCtx, conn, errs, func(message []byte) {
			ev, err := decodeAccountEvent(message)
			if err != nil {
				b.logger.Warn("Skipping malformed account event", zap.Error(err))
				return
			}
			if ev == nil {
				return
			}
			select {
			case events <- *ev:
			case <-streamCtx.Done():
			}
		})
	}()

	return events, errs, nil
}

func (b *BinanceAdapter) dial(ctx context.Context, stream string) (*websocket.Conn, error) {
	conn, _, err := b.dialer.DialContext(ctx, b.wsURL+"/"+stream, nil)
	if err != nil {
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	return conn, nil
}

// readLoop hands every frame to handle until the connection fails or ctx ends.
// errs is closed on return.
func (b *BinanceAdapter) readLoop(ctx context.Context, conn *websocket.Conn, errs chan<- error, handle func([]byte)) {
	defer close(errs)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("WS read error", zap.Error(err))
				errs <- err
			}
			return
		}
		handle(message)
	}
}

// Package feed adapts external order-fill notifications onto the TP/SL
// coordinator.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// reconnectDelay is the pause between reconnect attempts after a dropped
// connection.
const reconnectDelay = 2 * time.Second

// FillHandler consumes one filled-order notification.
type FillHandler func(ctx context.Context, orderID string) error

// fillMessage is the wire shape of a fill notification.
type fillMessage struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
}

// FillFeed listens on a WebSocket for order-fill notifications and invokes
// the handler for each one. It reconnects on disconnect until the context is
// cancelled.
type FillFeed struct {
	url     string
	handler FillHandler
	logger  *slog.Logger
}

// NewFillFeed creates a feed for the given WebSocket URL.
func NewFillFeed(url string, handler FillHandler, logger *slog.Logger) *FillFeed {
	return &FillFeed{
		url:     url,
		handler: handler,
		logger:  logger.With(slog.String("component", "fill_feed")),
	}
}

// Run connects and processes messages until ctx is cancelled, reconnecting
// with a fixed delay on any connection failure.
func (f *FillFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("fill feed disconnected, reconnecting",
				slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *FillFeed) runConnection(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	f.logger.Info("fill feed connected", slog.String("url", f.url))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg fillMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Warn("fill feed: malformed message",
				slog.String("error", err.Error()))
			continue
		}
		if msg.Type != "order_filled" || msg.OrderID == "" {
			continue
		}

		if err := f.handler(ctx, msg.OrderID); err != nil {
			f.logger.Error("fill feed: handler failed",
				slog.String("order_id", msg.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}
}

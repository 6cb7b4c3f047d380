package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillServer serves one WebSocket connection, pushes the given messages, and
// keeps the connection open until the test finishes.
func fillServer(t *testing.T, messages []string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open so the feed blocks in ReadMessage until
		// the test cancels its context.
		_, _, _ = conn.ReadMessage()
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type fillRecorder struct {
	mu     sync.Mutex
	orders []string
	notify chan string
}

func newFillRecorder() *fillRecorder {
	return &fillRecorder{notify: make(chan string, 16)}
}

func (r *fillRecorder) handle(_ context.Context, orderID string) error {
	r.mu.Lock()
	r.orders = append(r.orders, orderID)
	r.mu.Unlock()
	r.notify <- orderID
	return nil
}

func (r *fillRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.orders...)
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for order %s", want)
	}
}

func TestFillFeedDispatchesFills(t *testing.T) {
	url := fillServer(t, []string{
		`{"type":"order_filled","order_id":"ord-1"}`,
		`not even json`,
		`{"type":"order_created","order_id":"ord-2"}`,
		`{"type":"order_filled","order_id":""}`,
		`{"type":"order_filled","order_id":"ord-3"}`,
	})

	rec := newFillRecorder()
	feed := NewFillFeed(url, rec.handle, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	// Malformed and non-fill messages are skipped without breaking the
	// stream.
	waitFor(t, rec.notify, "ord-1")
	waitFor(t, rec.notify, "ord-3")
	assert.Equal(t, []string{"ord-1", "ord-3"}, rec.seen())

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after cancellation")
	}
}

func TestFillFeedStopsWhenCancelledBeforeConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := NewFillFeed("ws://127.0.0.1:1", nil, slog.New(slog.DiscardHandler))
	err := feed.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

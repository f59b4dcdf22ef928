package controller

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: In production, restrict to specific origins
		return true
	},
}

// ClientMessage represents messages sent by WebSocket clients.
type ClientMessage struct {
	Action   string `json:"action"`   // "subscribe" or "unsubscribe"
	Category string `json:"category"` // "notes", "swaps", "transactions", or "*" for all
}

// ServerMessage represents messages sent to WebSocket clients.
type ServerMessage struct {
	Type    string      `json:"type"`    // "record", "subscribed", "unsubscribed", "error", "ping"
	Payload interface{} `json:"payload"` // Event-specific data
}

// clientSubscriptions tracks which record categories a client follows.
type clientSubscriptions struct {
	mu         sync.RWMutex
	categories map[string]bool
}

func newClientSubscriptions() *clientSubscriptions {
	return &clientSubscriptions{categories: make(map[string]bool)}
}

func (cs *clientSubscriptions) Subscribe(category string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.categories[category] = true
}

func (cs *clientSubscriptions) Unsubscribe(category string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.categories, category)
}

// IsSubscribed checks one category. Wildcard (*) matches all categories.
func (cs *clientSubscriptions) IsSubscribed(category string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.categories["*"] {
		return true
	}
	return cs.categories[category]
}

// HandleWebSocket upgrades the connection and streams record events as the
// local store publishes them.
//
// Protocol:
// Client sends: {"action": "subscribe", "category": "notes"}
// Client sends: {"action": "subscribe", "category": "*"}
// Client sends: {"action": "unsubscribe", "category": "notes"}
//
// Server sends:
// - {"type": "record", "payload": {...}}
// - {"type": "subscribed", "payload": {"category": "notes"}}
// - {"type": "unsubscribed", "payload": {"category": "notes"}}
// - {"type": "ping", "payload": {"timestamp": 1234567890}}
// - {"type": "error", "payload": {"message": "..."}}
//
// IMPORTANT: All goroutines have panic recovery to prevent crashes.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func(conn *websocket.Conn) {
		if err := conn.Close(); err != nil {
			c.App.Logger.Error("Failed to close WebSocket connection", zap.Error(err))
		}
	}(conn)

	c.App.Logger.Info("WebSocket client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subs := newClientSubscriptions()
	send := make(chan ServerMessage, 256)

	var wg sync.WaitGroup

	// One forwarder per record category, each with panic recovery.
	for _, category := range []store.Category{store.CategoryNotes, store.CategorySwaps, store.CategoryTransactions} {
		wg.Add(1)
		go func(category store.Category) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					c.App.Logger.Error("Panic in record forwarder goroutine",
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
						zap.String("remote_addr", r.RemoteAddr))
					cancel()
				}
			}()
			c.forwardRecords(ctx, category, send, subs)
		}(category)
	}

	// Keep-alive pings.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in ping ticker goroutine",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("remote_addr", r.RemoteAddr))
				cancel()
			}
		}()
		c.sendPings(ctx, send)
	}()

	// Message writer owns all writes to the connection.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in message writer goroutine",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("remote_addr", r.RemoteAddr))
				cancel()
			}
		}()
		c.writeMessages(ctx, conn, send)
	}()

	// Blocks until the connection closes.
	c.readClientMessages(conn, cancel, subs, send)

	cancel()
	wg.Wait()

	c.App.Logger.Info("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// forwardRecords consumes one category's store subscription and forwards
// events the client is subscribed to.
func (c *Controller) forwardRecords(ctx context.Context, category store.Category, send chan<- ServerMessage, subs *clientSubscriptions) {
	sub := c.App.Store.Subscribe(category)
	defer sub.Close()

	for {
		record, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if !subs.IsSubscribed(string(category)) {
			continue
		}

		payload := map[string]interface{}{
			"category": string(category),
			"kind":     record.Kind.String(),
		}
		switch record.Kind {
		case store.KindNote:
			payload["note"] = record.Note
		case store.KindSwap:
			payload["swap"] = record.Swap
		case store.KindTransaction:
			payload["transaction"] = record.Tx
		}

		select {
		case send <- ServerMessage{Type: "record", Payload: payload}:
		case <-ctx.Done():
			return
		default:
			// Slow client; drop rather than stall the forwarder.
			c.App.Logger.Warn("Dropping record event for slow WebSocket client",
				zap.String("category", string(category)))
		}
	}
}

func (c *Controller) sendPings(ctx context.Context, send chan<- ServerMessage) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case send <- ServerMessage{Type: "ping", Payload: map[string]interface{}{"timestamp": time.Now().Unix()}}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Controller) writeMessages(ctx context.Context, conn *websocket.Conn, send <-chan ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				c.App.Logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// readClientMessages handles subscribe/unsubscribe requests until the
// connection closes.
func (c *Controller) readClientMessages(conn *websocket.Conn, cancel context.CancelFunc, subs *clientSubscriptions, send chan<- ServerMessage) {
	defer cancel()

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.App.Logger.Debug("WebSocket read failed", zap.Error(err))
			}
			return
		}

		switch msg.Action {
		case "subscribe":
			if !validCategory(msg.Category) {
				send <- ServerMessage{Type: "error", Payload: map[string]interface{}{"message": "unknown category"}}
				continue
			}
			subs.Subscribe(msg.Category)
			send <- ServerMessage{Type: "subscribed", Payload: map[string]interface{}{"category": msg.Category}}
		case "unsubscribe":
			subs.Unsubscribe(msg.Category)
			send <- ServerMessage{Type: "unsubscribed", Payload: map[string]interface{}{"category": msg.Category}}
		default:
			send <- ServerMessage{Type: "error", Payload: map[string]interface{}{"message": "unknown action"}}
		}
	}
}

func validCategory(category string) bool {
	switch store.Category(category) {
	case store.CategoryNotes, store.CategorySwaps, store.CategoryTransactions:
		return true
	}
	return category == "*"
}

// Package push delivers realtime balance updates to connected clients
// over WebSocket.
package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/mindgleam/mindgleam/store"
)

// BalanceEvent is the payload pushed when a user's balance changes.
type BalanceEvent struct {
	Type         string `json:"type"`
	Messages     int32  `json:"messages_remaining"`
	MoodCheckins int32  `json:"mood_checkins_remaining"`
	UpdatedTs    int64  `json:"updated_ts"`
}

// Hub tracks active subscriptions keyed by user id. A user may have
// several connections (multiple tabs); each gets every update.
type Hub struct {
	mu    sync.RWMutex
	conns map[int32]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[int32]map[*websocket.Conn]struct{})}
}

// Register adds a connection to the user's subscription set.
func (h *Hub) Register(userID int32, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

// Unregister removes a connection from the user's subscription set.
func (h *Hub) Unregister(userID int32, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.conns[userID]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// SubscriberCount returns the number of open connections for the user.
func (h *Hub) SubscriberCount(userID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// WriteBalance sends a single balance event on one connection.
func WriteBalance(ctx context.Context, conn *websocket.Conn, balance *store.Balance) error {
	data, err := marshalBalance(balance)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func marshalBalance(balance *store.Balance) ([]byte, error) {
	return json.Marshal(&BalanceEvent{
		Type:         "balance",
		Messages:     balance.Messages,
		MoodCheckins: balance.MoodCheckins,
		UpdatedTs:    balance.UpdatedTs,
	})
}

// BroadcastBalance pushes the balance to every connection the user has
// open. Write failures are logged and left for the connection's own
// read loop to clean up.
func (h *Hub) BroadcastBalance(ctx context.Context, balance *store.Balance) {
	if balance == nil {
		return
	}

	data, err := marshalBalance(balance)
	if err != nil {
		slog.Error("failed to marshal balance event", "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[balance.UserID]))
	for conn := range h.conns[balance.UserID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	// Writes fan out so one slow tab cannot stall the others.
	eg := errgroup.Group{}
	for _, conn := range conns {
		conn := conn
		eg.Go(func() error {
			return conn.Write(ctx, websocket.MessageText, data)
		})
	}
	if err := eg.Wait(); err != nil {
		slog.Debug("balance push write failed", "user_id", balance.UserID, "error", err)
	}
}

// Serve blocks on the connection's read loop until the client closes or
// the context ends. Incoming messages are discarded; the channel is
// push-only.
func (h *Hub) Serve(ctx context.Context, userID int32, conn *websocket.Conn) {
	h.Register(userID, conn)
	defer h.Unregister(userID, conn)

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("balance subscription closed by client", "user_id", userID)
			}
			return
		}
	}
}

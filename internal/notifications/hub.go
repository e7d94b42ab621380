package notifications

import (
	"context"
	"errors"
	"sync"

	"recipeshare/internal/middleware"
	"recipeshare/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per signed-in user. Anonymous viewers only count
	// against maxTotalConns.
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrHubClosed       = errors.New("live feed is shutting down")
)

// Hub tracks live-feed connections and broadcasts recipe events to all of them.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]struct{}
	perUser      map[uint]int
	closed       bool
	shutdownOnce sync.Once
}

// NewHub returns an empty live-feed hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[uint]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "recipe feed" }

// Register adds a connection for userID (zero for anonymous viewers).
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrServerConnLimit
	}
	if userID != 0 && h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	client := NewClient(h, conn, userID)
	h.clients[client] = struct{}{}
	if userID != 0 {
		h.perUser[userID]++
	}
	observability.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Calling it
// more than once for the same client is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.UserID != 0 {
		if h.perUser[client.UserID]--; h.perUser[client.UserID] <= 0 {
			delete(h.perUser, client.UserID)
		}
	}
	close(client.Send)
	observability.ActiveWebSockets.Dec()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.clients {
		c.TrySend(data)
	}
}

// StartWiring subscribes to the Redis event channel and broadcasts every
// event this or any other instance publishes.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartRecipeSubscriber(ctx, h.BroadcastAll)
}

// Shutdown sends a going-away close frame to every client and drops them.
func (h *Hub) Shutdown(_ context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true

		for client := range h.clients {
			if client.Conn != nil {
				if err := client.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
					middleware.Logger.Warn("live feed close frame failed", "user_id", client.UserID, "error", err)
				}
				_ = client.Conn.Close()
			}
			close(client.Send)
			observability.ActiveWebSockets.Dec()
		}
		h.clients = make(map[*Client]struct{})
		h.perUser = make(map[uint]int)
	})
	return nil
}

package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// WSMessage is the WebSocket message envelope. ID correlates a client
// request with its ack reply; broadcasts carry no ID.
type WSMessage struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub maintains the set of connected clients for the single classroom and
// fans broadcast events out to all of them.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.Int("connected", count))
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.Int("connected", count))
}

// Broadcast sends an event to every connected client. A nil payload sends
// the event with no data.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg := WSMessage{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error("marshal broadcast payload", zap.String("event", event), zap.Error(err))
			return
		}
		msg.Data = data
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

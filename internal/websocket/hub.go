// Package websocket pushes ledger change notifications to open dashboards.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

type Entity string

const (
	EntityUser     Entity = "user"
	EntityChore    Entity = "chore"
	EntityInstance Entity = "instance"
	EntityTransfer Entity = "transfer"
	EntityExpense  Entity = "expense"
	EntityBudget   Entity = "budget"
	EntityBackup   Entity = "backup"
)

// Message tells clients which record changed so they can refetch it.
type Message struct {
	Type   string         `json:"type"`
	Entity Entity         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with Type set to "<entity>_<action>".
func NewMessage(entity Entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   string(entity) + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub tracks connected clients. Clients that identified a user also receive
// messages addressed to that user.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg Message) {
	h.deliver(msg, func(*Client) bool { return true })
}

// SendToUser sends msg only to clients connected on behalf of userID.
func (h *Hub) SendToUser(userID int64, msg Message) {
	h.deliver(msg, func(c *Client) bool { return c.userID == userID })
}

func (h *Hub) deliver(msg Message, match func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client buffer full, dropping message", "type", msg.Type, "user_id", c.userID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

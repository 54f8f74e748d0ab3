// Package realtime fans events out to connected sockets, one room per user.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/utleieskade/backend/internal/logger"
)

const (
	EventSendMessage    = "sendMessage"
	EventMarkAsRead     = "markAsRead"
	EventReceiveMessage = "receiveMessage"
	EventMessageSent    = "messageSent"
	EventMessagesRead   = "messagesRead"
	EventNotification   = "notification"
	EventError          = "error"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one socket connection.
type Client struct {
	UserID string
	Send   chan []byte
}

// Emitter publishes events to a user's room. Services depend on this, not on Hub.
type Emitter interface {
	Emit(userID, event string, data interface{})
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Join registers a new connection in the user's room.
func (h *Hub) Join(userID string) *Client {
	client := &Client{UserID: userID, Send: make(chan []byte, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[userID] = room
	}
	room[client] = struct{}{}

	logger.Debug("socket joined room", map[string]interface{}{"user_id": userID, "connections": len(room)})
	return client
}

// Leave removes the connection and closes its send channel.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.UserID]
	if !ok {
		return
	}
	if _, ok := room[client]; ok {
		delete(room, client)
		close(client.Send)
	}
	if len(room) == 0 {
		delete(h.rooms, client.UserID)
	}
}

// Emit sends an event to every connection of userID. Slow connections drop the frame.
func (h *Hub) Emit(userID, event string, data interface{}) {
	payload, err := Encode(event, data)
	if err != nil {
		logger.WithError(err, "realtime").Error("failed to encode socket frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[userID] {
		select {
		case client.Send <- payload:
		default:
			logger.Warn("socket send buffer full, dropping frame", map[string]interface{}{
				"user_id": userID,
				"event":   event,
			})
		}
	}
}

// Online reports whether userID has at least one connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}

// Encode marshals an outbound frame.
func Encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// NopEmitter discards events.
type NopEmitter struct{}

func (NopEmitter) Emit(string, string, interface{}) {}

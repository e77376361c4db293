package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"NestLink/entity"
)

// ClientMessageHandler handles incoming WebSocket messages from UI clients.
type ClientMessageHandler interface {
	HandleMarkRead(chatID string) error
}

// Event represents a WebSocket event pushed to UI clients.
type Event struct {
	Type string      `json:"type"` // "new_message", "inbox_update", "channel_state"
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected UI clients and fans inbox state out to
// them as it changes.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	handler    ClientMessageHandler
	log        *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// SetHandler sets the handler for incoming client messages.
func (h *Hub) SetHandler(handler ClientMessageHandler) {
	h.handler = handler
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastMessage pushes a freshly merged message to all UI clients.
func (h *Hub) BroadcastMessage(msg entity.Message) {
	h.broadcast <- &Event{
		Type: "new_message",
		Data: msg,
	}
}

// BroadcastInbox pushes an updated conversation summary to all UI clients.
func (h *Hub) BroadcastInbox(summary entity.ConversationSummary) {
	h.broadcast <- &Event{
		Type: "inbox_update",
		Data: summary,
	}
}

// BroadcastChannelState reports a conversation channel transition, so the
// UI can show a disconnected state and growing pending queue.
func (h *Hub) BroadcastChannelState(chatID string, state entity.ChannelState, pending int) {
	h.broadcast <- &Event{
		Type: "channel_state",
		Data: map[string]interface{}{
			"chat_id": chatID,
			"state":   state.String(),
			"pending": pending,
		},
	}
}

// clientEvent represents an incoming WebSocket message from a UI client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses and dispatches an incoming message from a client.
func (h *Hub) HandleClientMessage(raw []byte) {
	if h.handler == nil {
		return
	}

	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		if h.log != nil {
			h.log.Warn("failed to parse client ws message", slog.String("error", err.Error()))
		}
		return
	}

	switch event.Type {
	case "mark_read":
		var data struct {
			ChatID string `json:"chat_id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			if h.log != nil {
				h.log.Warn("failed to parse mark_read data", slog.String("error", err.Error()))
			}
			return
		}
		if data.ChatID == "" {
			return
		}
		if err := h.handler.HandleMarkRead(data.ChatID); err != nil {
			if h.log != nil {
				h.log.Error("failed to handle mark_read",
					slog.String("chat_id", data.ChatID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

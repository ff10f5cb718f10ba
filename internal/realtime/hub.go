package realtime

import (
	"encoding/json"
	"sync"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/rs/zerolog"
)

// Event names emitted to websocket clients
const (
	EventNotificationNew  = "notification:new"
	EventNotificationRead = "notification:read"
	EventPostNew          = "post:new"
	EventPostUpdated      = "post:updated"
)

// Event is the envelope written to clients
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// NotificationPayload carries the display-ready notification fields plus
// the recipient's current unread count
type NotificationPayload struct {
	models.EnrichedNotification
	Count int64 `json:"count"`
}

// ReadStatePayload carries the unread count after a read-state change
type ReadStatePayload struct {
	Count int64 `json:"count"`
}

// Hub tracks live websocket sessions. A user may hold several sessions at
// once (multiple tabs); anonymous sessions receive public broadcasts only.
// Created once at process start and injected wherever events are pushed.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{} // user ID -> their open sessions
	clients  map[*Client]struct{}            // every open session

	logger zerolog.Logger
}

// NewHub creates an empty session registry
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
		clients:  make(map[*Client]struct{}),
		logger:   logger.With().Str("component", "realtime").Logger(),
	}
}

// Register adds a connected client to the registry. If the client declared
// an owning user it also joins that user's session set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if c.userID != "" {
		if _, ok := h.sessions[c.userID]; !ok {
			h.sessions[c.userID] = make(map[*Client]struct{})
		}
		h.sessions[c.userID][c] = struct{}{}
	}
}

// Unregister removes a client from the registry and closes its send
// channel. Safe to call more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove must be called with h.mu held
func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if c.userID != "" {
		if set, ok := h.sessions[c.userID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.sessions, c.userID)
			}
		}
	}
	close(c.send)
}

// SessionCount returns how many open sessions the user currently holds
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// PushToUser delivers an event to every open session of the given user.
// Best-effort: if no session is open the event is dropped, and a session
// whose buffer is full is evicted rather than blocked on.
func (h *Hub) PushToUser(userID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event.Name).Msg("marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.sessions[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("user", userID).Str("event", event.Name).Msg("slow session evicted")
			h.remove(c)
		}
	}
}

// Broadcast delivers an event to every connected session regardless of
// identity
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event.Name).Msg("marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("event", event.Name).Msg("slow session evicted")
			h.remove(c)
		}
	}
}

// PushNotification delivers a freshly created notification and the
// recipient's unread count to all of the recipient's sessions
func (h *Hub) PushNotification(userID string, notification models.EnrichedNotification, unreadCount int64) {
	h.PushToUser(userID, Event{
		Name:    EventNotificationNew,
		Payload: NotificationPayload{EnrichedNotification: notification, Count: unreadCount},
	})
}

// PushReadState delivers the new unread count after notifications were
// marked read
func (h *Hub) PushReadState(userID string, unreadCount int64) {
	h.PushToUser(userID, Event{
		Name:    EventNotificationRead,
		Payload: ReadStatePayload{Count: unreadCount},
	})
}

// BroadcastPostEvent announces a new or updated post to every session
func (h *Hub) BroadcastPostEvent(name string, post models.EnrichedPost) {
	h.Broadcast(Event{Name: name, Payload: post})
}

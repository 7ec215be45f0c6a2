// Package realtime is the presence and event fan-out layer: it tracks
// connected clients, their user association ("rooms") and pushes domain
// events to them. Delivery is best-effort: a slow client's frame is dropped
// rather than ever blocking the hub, and nothing is retried or persisted.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/metrics"
	"github.com/anongram/server/pkg/idx"
)

// sendBuffer is the per-client outbound queue length. A client that falls
// this far behind starts losing frames.
const sendBuffer = 64

// Presence is what the hub tells about connection lifecycle. Implemented by
// service.UserService.
type Presence interface {
	RecordOnline(ctx context.Context, userID string) error
	RecordOffline(ctx context.Context, userID string) error
}

// MessageSink handles chat traffic arriving over the realtime channel.
// Implemented by service.MessageService.
type MessageSink interface {
	Send(ctx context.Context, senderID, text, chatID string) (domain.Message, error)
	MarkRead(ctx context.Context, messageID string) (domain.Message, error)
}

// TokenVerifier authenticates a user:join frame.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Client is one realtime connection. A client starts unassociated and joins
// a user via Associate; its Send channel carries encoded frames to whatever
// transport owns the connection.
type Client struct {
	ID   string
	Send chan []byte

	// userID is owned by the hub and guarded by its lock.
	userID string
}

func NewClient() *Client {
	return &Client{ID: idx.New(), Send: make(chan []byte, sendBuffer)}
}

// Hub is the single fan-out point. All state behind one lock; every delivery
// is a non-blocking channel send.
type Hub struct {
	Logger *slog.Logger

	// Wired after construction, before any connection is served.
	Presence Presence
	Messages MessageSink
	Tokens   TokenVerifier

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{} // user id -> associated clients
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Logger:  logger,
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register adds a freshly connected, not yet associated client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Associate binds the client to a user id, moving it out of any previous
// room. Presence is reference-counted: only the first connection of a user
// flips them online, and only the last one leaving flips them offline.
func (h *Hub) Associate(ctx context.Context, c *Client, userID string) {
	h.mu.Lock()
	if c.userID == userID {
		// Repeated join for the same user must not re-announce them.
		h.mu.Unlock()
		return
	}
	wasFirst := false
	leftUser, lastLeft := h.detachLocked(c)
	if _, ok := h.clients[c]; ok && userID != "" {
		room := h.rooms[userID]
		if room == nil {
			room = make(map[*Client]struct{})
			h.rooms[userID] = room
			wasFirst = true
		}
		room[c] = struct{}{}
		c.userID = userID
	}
	h.mu.Unlock()

	// Presence calls happen outside the lock: they hit the store and
	// broadcast back through this hub.
	if lastLeft && leftUser != userID {
		h.recordOffline(ctx, leftUser)
	}
	if wasFirst {
		h.recordOnline(ctx, userID)
	}
}

// Unregister drops the client. If it was the user's last live connection the
// user goes offline.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	_, registered := h.clients[c]
	delete(h.clients, c)
	leftUser, lastLeft := h.detachLocked(c)
	h.mu.Unlock()

	if registered {
		close(c.Send)
	}
	if lastLeft {
		h.recordOffline(ctx, leftUser)
	}
}

// detachLocked removes c from its room. Reports the user left and whether c
// was that user's last connection. Caller holds the write lock.
func (h *Hub) detachLocked(c *Client) (userID string, last bool) {
	if c.userID == "" {
		return "", false
	}
	userID = c.userID
	c.userID = ""

	room := h.rooms[userID]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, userID)
		return userID, true
	}
	return userID, false
}

func (h *Hub) recordOnline(ctx context.Context, userID string) {
	if h.Presence == nil {
		return
	}
	if err := h.Presence.RecordOnline(ctx, userID); err != nil {
		h.Logger.Warn("presence online update failed", "user_id", userID, "error", err)
	}
}

func (h *Hub) recordOffline(ctx context.Context, userID string) {
	if h.Presence == nil {
		return
	}
	if err := h.Presence.RecordOffline(ctx, userID); err != nil {
		h.Logger.Warn("presence offline update failed", "user_id", userID, "error", err)
	}
}

// ConnectedUsers reports how many distinct users currently have at least one
// associated connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Broadcast delivers an event to every connected client.
func (h *Hub) Broadcast(ev domain.Event) {
	h.BroadcastExcept("", ev)
}

// BroadcastExcept delivers to everyone except connections associated with
// the originating user.
func (h *Hub) BroadcastExcept(originUserID string, ev domain.Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		h.Logger.Error("event encode failed", "type", ev.Type(), "error", err)
		return
	}
	metrics.EventsBroadcast.WithLabelValues(string(ev.Type())).Inc()

	// Deliveries stay under the read lock so Unregister can't close a Send
	// channel mid-send. Each delivery is a non-blocking channel write, so
	// the lock is held only briefly.
	h.mu.RLock()
	for c := range h.clients {
		if originUserID != "" && c.userID == originUserID {
			continue
		}
		h.deliver(c, data, ev.Type())
	}
	h.mu.RUnlock()
}

// SendToUser delivers only to the connections associated with userID. A user
// with no live connection silently receives nothing; they catch up through
// the pull queries.
func (h *Hub) SendToUser(userID string, ev domain.Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		h.Logger.Error("event encode failed", "type", ev.Type(), "error", err)
		return
	}
	metrics.EventsBroadcast.WithLabelValues(string(ev.Type())).Inc()

	h.mu.RLock()
	for c := range h.rooms[userID] {
		h.deliver(c, data, ev.Type())
	}
	h.mu.RUnlock()
}

// sendTo answers a single client, e.g. a pong. Skipped silently if the
// client already unregistered.
func (h *Hub) sendTo(c *Client, ev domain.Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		h.Logger.Error("event encode failed", "type", ev.Type(), "error", err)
		return
	}

	h.mu.RLock()
	if _, ok := h.clients[c]; ok {
		h.deliver(c, data, ev.Type())
	}
	h.mu.RUnlock()
}

func (h *Hub) deliver(c *Client, data []byte, typ domain.EventType) {
	select {
	case c.Send <- data:
	default:
		h.Logger.Warn("client send buffer full, frame dropped",
			"client_id", c.ID, "type", typ)
	}
}

package service

import "github.com/anongram/server/internal/chat/domain"

// Broadcaster is the fan-out seam the services push state-change events
// through. Delivery is best-effort and fire-and-forget: implementations never
// block the caller and never report delivery failures back, so a fan-out
// problem can never roll back a store mutation.
type Broadcaster interface {
	// Broadcast delivers an event to every connected listener.
	Broadcast(ev domain.Event)

	// BroadcastExcept delivers to everyone except connections associated
	// with the originating user.
	BroadcastExcept(originUserID string, ev domain.Event)

	// SendToUser delivers only to connections associated with the given user
	// (room semantics, used for direct messages).
	SendToUser(userID string, ev domain.Event)
}

// NopBroadcaster discards every event. Used when no realtime layer is wired,
// e.g. in service tests that don't care about fan-out.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(domain.Event)               {}
func (NopBroadcaster) BroadcastExcept(string, domain.Event) {}
func (NopBroadcaster) SendToUser(string, domain.Event)      {}

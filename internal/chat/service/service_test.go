package service

import (
	"context"
	"sync"

	"github.com/anongram/server/internal/chat/domain"
)

// recordingBroadcaster captures emitted events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Event  domain.Event
	Except string // origin user id for BroadcastExcept, "" for Broadcast
	To     string // target user id for SendToUser
}

func (b *recordingBroadcaster) Broadcast(ev domain.Event) {
	b.record(recordedEvent{Event: ev})
}

func (b *recordingBroadcaster) BroadcastExcept(originUserID string, ev domain.Event) {
	b.record(recordedEvent{Event: ev, Except: originUserID})
}

func (b *recordingBroadcaster) SendToUser(userID string, ev domain.Event) {
	b.record(recordedEvent{Event: ev, To: userID})
}

func (b *recordingBroadcaster) record(ev recordedEvent) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) ofType(typ domain.EventType) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, ev := range b.events {
		if ev.Event.Type() == typ {
			out = append(out, ev)
		}
	}
	return out
}

// fakeMailer records delivered codes and can be told to fail.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  error
	block chan struct{} // when set, SendCode waits for ctx or close
}

type sentMail struct {
	To   string
	Code string
}

func (m *fakeMailer) SendCode(ctx context.Context, to, code string) error {
	if m.block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.block:
		}
	}
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	m.sent = append(m.sent, sentMail{To: to, Code: code})
	m.mu.Unlock()
	return nil
}

func (m *fakeMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Code
}

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/stretchr/testify/require"
)

// fakePresence records online/offline transitions.
type fakePresence struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (p *fakePresence) RecordOnline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
	return nil
}

func (p *fakePresence) RecordOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
	return nil
}

// fakeSink records messages arriving through the realtime channel.
type fakeSink struct {
	mu   sync.Mutex
	sent []string
	read []string
}

func (s *fakeSink) Send(_ context.Context, senderID, text, chatID string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, senderID+"|"+text+"|"+chatID)
	return domain.Message{ID: "m1", SenderID: senderID, ChatID: chatID, Body: text}, nil
}

func (s *fakeSink) MarkRead(_ context.Context, messageID string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.read = append(s.read, messageID)
	return domain.Message{ID: messageID, Read: true}, nil
}

// staticTokens maps raw tokens to user ids.
type staticTokens map[string]string

var errBadToken = errors.New("bad token")

func (t staticTokens) Verify(raw string) (string, error) {
	if id, ok := t[raw]; ok {
		return id, nil
	}
	return "", errBadToken
}

func newTestHub(t *testing.T) (*Hub, *fakePresence, *fakeSink) {
	t.Helper()
	h := NewHub(slog.New(slog.DiscardHandler))
	presence := &fakePresence{}
	sink := &fakeSink{}
	h.Presence = presence
	h.Messages = sink
	h.Tokens = staticTokens{"tok-alice": "alice", "tok-bob": "bob"}
	return h, presence, sink
}

func join(t *testing.T, h *Hub, userID string) *Client {
	t.Helper()
	c := NewClient()
	h.Register(c)
	h.Associate(context.Background(), c, userID)
	return c
}

// drain empties a client's send queue and returns the decoded frames.
func drain(t *testing.T, c *Client) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for {
		select {
		case data := <-c.Send:
			var frame map[string]any
			require.NoError(t, json.Unmarshal(data, &frame))
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func frameTypes(frames []map[string]any) []string {
	var out []string
	for _, f := range frames {
		out = append(out, f["type"].(string))
	}
	return out
}

func TestPresenceRefCounting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h, presence, _ := newTestHub(t)

	first := join(t, h, "alice")
	require.Equal(t, []string{"alice"}, presence.online)
	require.Equal(t, 1, h.ConnectedUsers())

	// A second tab does not re-announce the user.
	second := join(t, h, "alice")
	require.Equal(t, []string{"alice"}, presence.online)
	require.Equal(t, 1, h.ConnectedUsers())

	// Closing one tab keeps the user online.
	h.Unregister(ctx, first)
	require.Empty(t, presence.offline)
	require.Equal(t, 1, h.ConnectedUsers())

	// The last tab going away flips them offline.
	h.Unregister(ctx, second)
	require.Equal(t, []string{"alice"}, presence.offline)
	require.Equal(t, 0, h.ConnectedUsers())
}

func TestRepeatedJoinDoesNotReannounce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h, presence, _ := newTestHub(t)

	c := join(t, h, "alice")
	require.Equal(t, []string{"alice"}, presence.online)

	// The same connection joining as the same user again is a no-op.
	h.Associate(ctx, c, "alice")
	require.Equal(t, []string{"alice"}, presence.online)
	require.Empty(t, presence.offline)
	require.Equal(t, 1, h.ConnectedUsers())

	// Switching users still hands off presence.
	h.Associate(ctx, c, "bob")
	require.Equal(t, []string{"alice", "bob"}, presence.online)
	require.Equal(t, []string{"alice"}, presence.offline)

	h.Unregister(ctx, c)
	require.Equal(t, []string{"alice", "bob"}, presence.offline)
}

func TestBroadcastExceptSkipsOriginator(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestHub(t)
	alice := join(t, h, "alice")
	bob := join(t, h, "bob")
	unassociated := NewClient()
	h.Register(unassociated)

	h.BroadcastExcept("alice", domain.UserTyping{UserID: "alice", ChatID: "global", IsTyping: true})

	require.Empty(t, drain(t, alice))
	require.Equal(t, []string{"user_typing"}, frameTypes(drain(t, bob)))
	require.Equal(t, []string{"user_typing"}, frameTypes(drain(t, unassociated)))
}

func TestSendToUserTargetsAllConnections(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestHub(t)
	tab1 := join(t, h, "alice")
	tab2 := join(t, h, "alice")
	bob := join(t, h, "bob")

	h.SendToUser("alice", domain.MessageRead{MessageID: "m1", ChatID: "alice"})

	require.Len(t, drain(t, tab1), 1)
	require.Len(t, drain(t, tab2), 1)
	require.Empty(t, drain(t, bob))

	// Unknown user is a silent no-op.
	h.SendToUser("ghost", domain.MessageRead{MessageID: "m1", ChatID: "ghost"})
}

func TestSlowClientLosesFramesNotConnection(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestHub(t)
	slow := join(t, h, "alice")

	for range sendBuffer + 10 {
		h.Broadcast(domain.UserTyping{UserID: "bob", ChatID: "global", IsTyping: true})
	}

	// The queue capped out; the client is still registered and reachable.
	require.Len(t, drain(t, slow), sendBuffer)
	h.Broadcast(domain.Pong{Timestamp: time.Now().UnixMilli()})
	require.Len(t, drain(t, slow), 1)
}

func TestHandleFrame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("join associates via token subject", func(t *testing.T) {
		h, presence, _ := newTestHub(t)
		c := NewClient()
		h.Register(c)

		// The claimed userId disagrees with the token; the token wins.
		h.HandleFrame(ctx, c, []byte(`{"type":"user:join","token":"tok-alice","userId":"mallory"}`))
		require.Equal(t, []string{"alice"}, presence.online)
		require.Equal(t, "alice", h.userOf(c))
	})

	t.Run("join with bad token is dropped", func(t *testing.T) {
		h, presence, _ := newTestHub(t)
		c := NewClient()
		h.Register(c)

		h.HandleFrame(ctx, c, []byte(`{"type":"user:join","token":"forged"}`))
		require.Empty(t, presence.online)
		require.Equal(t, "", h.userOf(c))
	})

	t.Run("malformed frames never tear the connection down", func(t *testing.T) {
		h, _, _ := newTestHub(t)
		c := join(t, h, "alice")

		h.HandleFrame(ctx, c, []byte(`{not json`))
		h.HandleFrame(ctx, c, []byte(`{"type":"no:such:frame"}`))
		h.HandleFrame(ctx, c, []byte(`{"type":"message:send"}`)) // missing text
		h.HandleFrame(ctx, c, []byte(`{"type":"user:join"}`))    // missing token

		// Still registered and responsive.
		h.HandleFrame(ctx, c, []byte(`{"type":"ping"}`))
		require.Equal(t, []string{"pong"}, frameTypes(drain(t, c)))
	})

	t.Run("message routes to the sink with receiver precedence", func(t *testing.T) {
		h, _, sink := newTestHub(t)
		c := join(t, h, "alice")

		h.HandleFrame(ctx, c, []byte(`{"type":"message:send","text":"hi","chatId":"global","receiverId":"bob"}`))
		require.Equal(t, []string{"alice|hi|bob"}, sink.sent)
	})

	t.Run("message from unassociated client is dropped", func(t *testing.T) {
		h, _, sink := newTestHub(t)
		c := NewClient()
		h.Register(c)

		h.HandleFrame(ctx, c, []byte(`{"type":"message:send","text":"hi"}`))
		require.Empty(t, sink.sent)
	})

	t.Run("typing fans out to everyone else", func(t *testing.T) {
		h, _, _ := newTestHub(t)
		alice := join(t, h, "alice")
		bob := join(t, h, "bob")

		h.HandleFrame(ctx, alice, []byte(`{"type":"user_typing","chatId":"global","isTyping":true}`))

		require.Empty(t, drain(t, alice))
		frames := drain(t, bob)
		require.Len(t, frames, 1)
		require.Equal(t, "user_typing", frames[0]["type"])
		require.Equal(t, "alice", frames[0]["userId"])
		require.Equal(t, true, frames[0]["isTyping"])
	})

	t.Run("read receipt reaches the sink", func(t *testing.T) {
		h, _, sink := newTestHub(t)
		c := join(t, h, "alice")

		h.HandleFrame(ctx, c, []byte(`{"type":"message:read","messageId":"m42"}`))
		require.Equal(t, []string{"m42"}, sink.read)
	})
}

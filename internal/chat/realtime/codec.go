package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anongram/server/internal/chat/domain"
)

// Outbound frames are flat JSON objects: the variant's own fields plus a
// "type" tag, matching what the original clients expect.
func encodeEvent(ev domain.Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	fields["type"] = json.RawMessage(`"` + string(ev.Type()) + `"`)

	return json.Marshal(fields)
}

// Inbound frame kinds clients may send.
const (
	inboundJoin    = "user:join"
	inboundMessage = "message:send"
	inboundRead    = "message:read"
	inboundTyping  = "user_typing"
	inboundPing    = "ping"
)

var errMalformedFrame = errors.New("malformed inbound frame")

// inboundFrame is the superset of fields across all inbound kinds. The frame
// is validated per kind before dispatch; anything that doesn't parse or
// carries an unknown type is rejected at the boundary.
type inboundFrame struct {
	Type       string `json:"type"`
	Token      string `json:"token"`
	UserID     string `json:"userId"`
	Text       string `json:"text"`
	ChatID     string `json:"chatId"`
	ReceiverID string `json:"receiverId"`
	MessageID  string `json:"messageId"`
	IsTyping   bool   `json:"isTyping"`
}

func decodeInbound(data []byte) (inboundFrame, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return inboundFrame{}, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}

	switch f.Type {
	case inboundJoin:
		if f.Token == "" {
			return inboundFrame{}, fmt.Errorf("%w: join without token", errMalformedFrame)
		}
	case inboundMessage:
		if f.Text == "" {
			return inboundFrame{}, fmt.Errorf("%w: message without text", errMalformedFrame)
		}
	case inboundRead:
		if f.MessageID == "" {
			return inboundFrame{}, fmt.Errorf("%w: read without messageId", errMalformedFrame)
		}
	case inboundTyping, inboundPing:
	default:
		return inboundFrame{}, fmt.Errorf("%w: unknown type %q", errMalformedFrame, f.Type)
	}
	return f, nil
}

package domain

// EventType tags every realtime event crossing the fan-out channel.
type EventType string

const (
	EventUserOnline        EventType = "user:status:online"
	EventUserOffline       EventType = "user:status:offline"
	EventUserJoined        EventType = "user:joined"
	EventMessageNew        EventType = "message:new"
	EventMessageRead       EventType = "message:read"
	EventUserTyping        EventType = "user_typing"
	EventProfessionChanged EventType = "profession_changed"
	EventLevelUp           EventType = "user:levelup"
	EventPong              EventType = "pong"
)

// Event is the closed union of everything the server pushes to connected
// clients. Each variant carries only its own fields; the sealed method keeps
// the set closed to this package.
type Event interface {
	Type() EventType
	sealedEvent()
}

type UserOnline struct {
	UserID string `json:"userId"`
}

type UserOffline struct {
	UserID   string `json:"userId"`
	LastSeen int64  `json:"lastSeen"`
}

type UserJoined struct {
	User PublicUser `json:"user"`
}

type MessageNew struct {
	Message Message `json:"message"`
}

type MessageRead struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
}

type UserTyping struct {
	UserID   string `json:"userId"`
	ChatID   string `json:"chatId,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

type ProfessionChanged struct {
	UserID     string `json:"userId"`
	Profession string `json:"profession"`
}

type LevelUp struct {
	UserID   string `json:"userId"`
	OldLevel int    `json:"oldLevel"`
	NewLevel int    `json:"newLevel"`
	Reward   int    `json:"reward"`
}

type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

func (UserOnline) Type() EventType        { return EventUserOnline }
func (UserOffline) Type() EventType       { return EventUserOffline }
func (UserJoined) Type() EventType        { return EventUserJoined }
func (MessageNew) Type() EventType        { return EventMessageNew }
func (MessageRead) Type() EventType       { return EventMessageRead }
func (UserTyping) Type() EventType        { return EventUserTyping }
func (ProfessionChanged) Type() EventType { return EventProfessionChanged }
func (LevelUp) Type() EventType           { return EventLevelUp }
func (Pong) Type() EventType              { return EventPong }

func (UserOnline) sealedEvent()        {}
func (UserOffline) sealedEvent()       {}
func (UserJoined) sealedEvent()        {}
func (MessageNew) sealedEvent()        {}
func (MessageRead) sealedEvent()       {}
func (UserTyping) sealedEvent()        {}
func (ProfessionChanged) sealedEvent() {}
func (LevelUp) sealedEvent()           {}
func (Pong) sealedEvent()              {}

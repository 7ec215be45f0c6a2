package domain

import "time"

// GlobalChatID is the broadcast channel marker. Any other ChatID is the
// recipient's user id (a direct chat).
const GlobalChatID = "global"

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

type Message struct {
	ID        string      `json:"id"`
	SenderID  string      `json:"senderId"`
	ChatID    string      `json:"chatId"`
	Body      string      `json:"text"`
	Type      MessageType `json:"type"`
	Read      bool        `json:"read"`
	CreatedAt time.Time   `json:"timestamp"`
}

func (m Message) Direct() bool {
	return m.ChatID != GlobalChatID
}

package entity

import "time"

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
	// ChangeResync carries a full snapshot after the feed reconnects.
	ChangeResync ChangeKind = "resync"
)

type MessageEvent struct {
	Kind      ChangeKind
	MessageID string
	Message   *Message
	Snapshot  []*Message
}

type StatusEvent struct {
	Kind   ChangeKind
	Status *MessageStatus
}

type TypingEvent struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	IsTyping       bool      `json:"is_typing"`
	At             time.Time `json:"at"`
}

package entity

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeAudio MessageType = "audio"
	MessageTypeEmoji MessageType = "emoji"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio, MessageTypeEmoji:
		return true
	}
	return false
}

// IsAttachment reports whether content of this type is an uploaded object URL.
func (t MessageType) IsAttachment() bool {
	return t == MessageTypeImage || t == MessageTypeFile || t == MessageTypeAudio
}

type MessageMetadata struct {
	FileName     string  `json:"fileName,omitempty" firestore:"fileName,omitempty"`
	FileSize     int64   `json:"fileSize,omitempty" firestore:"fileSize,omitempty"`
	MimeType     string  `json:"mimeType,omitempty" firestore:"mimeType,omitempty"`
	Duration     float64 `json:"duration,omitempty" firestore:"duration,omitempty"`
	Path         string  `json:"path,omitempty" firestore:"path,omitempty"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty" firestore:"thumbnailUrl,omitempty"`
}

type Message struct {
	ID             string           `json:"id" firestore:"id"`
	ConversationID string           `json:"conversation_id" firestore:"conversationId"`
	SenderID       string           `json:"sender_id" firestore:"senderId"`
	SenderName     string           `json:"sender_name,omitempty" firestore:"-"`
	Content        string           `json:"content" firestore:"content"`
	MessageType    MessageType      `json:"message_type" firestore:"messageType"`
	Metadata       *MessageMetadata `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	IsEdited       bool             `json:"is_edited" firestore:"isEdited"`
	CreatedAt      time.Time        `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time        `json:"updated_at,omitempty" firestore:"updatedAt,omitempty"`
}

// Clone returns a copy that shares no mutable state with m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := *m
	if m.Metadata != nil {
		md := *m.Metadata
		cp.Metadata = &md
	}
	return &cp
}

// MessageStatus is the per-reader read marker of a message, keyed by (message, user).
type MessageStatus struct {
	ID             string     `json:"id" firestore:"id"`
	MessageID      string     `json:"message_id" firestore:"messageId"`
	UserID         string     `json:"user_id" firestore:"userId"`
	ConversationID string     `json:"conversation_id" firestore:"conversationId"`
	IsRead         bool       `json:"is_read" firestore:"isRead"`
	ReadAt         *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty"`
}

func MessageStatusID(messageID, userID string) string {
	return messageID + "_" + userID
}

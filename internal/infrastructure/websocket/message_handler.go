package websocket

import (
	"encoding/json"
	"time"

	"directchat/internal/infrastructure/metrics"
	"directchat/pkg/logger"
)

// Client → server
const (
	MessageTypePing              = "ping"
	MessageTypeJoinConversation  = "join_conversation"
	MessageTypeLeaveConversation = "leave_conversation"
	MessageTypeTyping            = "typing"
	MessageTypeTypingStop        = "typing_stop"
	MessageTypeMarkRead          = "mark_read"
)

// Server → client
const (
	MessageTypePong                = "pong"
	MessageTypeHistory             = "history"
	MessageTypeMessageInserted     = "message_inserted"
	MessageTypeMessageUpdated      = "message_updated"
	MessageTypeMessageDeleted      = "message_deleted"
	MessageTypeMessagesResynced    = "messages_resynced"
	MessageTypeReadReceipt         = "read_receipt"
	MessageTypeTypingIndicator     = "typing_indicator"
	MessageTypeConversationUpdated = "conversation_updated"
	MessageTypeError               = "error"
)

type WSMessage struct {
	Type      string          `json:"type"`
	ChatID    string          `json:"chat_id,omitempty"`
	Data      interface{}     `json:"data,omitempty"`
	Raw       json.RawMessage `json:"-"`
	Timestamp string          `json:"timestamp"`
}

type inbound struct {
	Type   string          `json:"type"`
	ChatID string          `json:"chat_id"`
	Data   json.RawMessage `json:"data"`
}

type TypingData struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Typing bool   `json:"typing"`
}

type MarkReadData struct {
	MessageID string `json:"message_id"`
}

type MessageDeletedData struct {
	MessageID string `json:"message_id"`
}

// DecodeData unmarshals the raw data field of an inbound message.
func (m WSMessage) DecodeData(v interface{}) error {
	if len(m.Raw) == 0 {
		return nil
	}
	return json.Unmarshal(m.Raw, v)
}

// HandleClientMessage answers pings itself and forwards everything else to the handler.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		logger.Debug("WebSocket: malformed frame from client %s: %v", client.ID, err)
		m.SendError(client, "", "Invalid message format")
		return
	}
	metrics.IncWSEvent(in.Type)

	msg := WSMessage{
		Type:      in.Type,
		ChatID:    in.ChatID,
		Raw:       in.Data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	switch in.Type {
	case MessageTypePing:
		m.SendToClient(client, WSMessage{Type: MessageTypePong, Data: map[string]string{"status": "alive"}})
		return

	case MessageTypeJoinConversation, MessageTypeLeaveConversation,
		MessageTypeTyping, MessageTypeTypingStop, MessageTypeMarkRead:
		if in.ChatID == "" {
			m.SendError(client, "", "Missing chat_id")
			return
		}

	default:
		logger.Debug("WebSocket: unknown message type '%s' from client %s", in.Type, client.ID)
		m.SendError(client, in.ChatID, "Unknown message type")
		return
	}

	if m.handler != nil {
		m.handler.OnMessage(client, msg)
	}
}

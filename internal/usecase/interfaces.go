package usecase

import (
	"time"

	ws "directchat/internal/infrastructure/websocket"
)

// Notifier pushes realtime messages to connected clients.
type Notifier interface {
	SendToUser(userID string, msg ws.WSMessage)
	BroadcastToRoomExcept(conversationID, exceptUserID string, msg ws.WSMessage)
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

const unknownUsername = "Unknown User"

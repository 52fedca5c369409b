package entity

import "time"

type Conversation struct {
	ID              string    `json:"id" firestore:"id"`
	ParticipantIDs  []string  `json:"participant_ids" firestore:"participantIds"`
	IsGroup         bool      `json:"is_group" firestore:"isGroup"`
	LastMessage     string    `json:"last_message" firestore:"lastMessage"`
	LastMessageTime time.Time `json:"last_message_time" firestore:"lastMessageTime"`
	CreatedAt       time.Time `json:"created_at" firestore:"createdAt"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsDirectBetween reports whether the conversation is a non-group conversation
// whose participant set is exactly {a, b}.
func (c *Conversation) IsDirectBetween(a, b string) bool {
	if c.IsGroup || len(c.ParticipantIDs) != 2 {
		return false
	}
	return (c.ParticipantIDs[0] == a && c.ParticipantIDs[1] == b) ||
		(c.ParticipantIDs[0] == b && c.ParticipantIDs[1] == a)
}

// Counterpart returns the other member of a direct conversation.
func (c *Conversation) Counterpart(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// Participant is a (conversation, user) membership row holding the user's unread counter.
type Participant struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	UserID         string    `json:"user_id" firestore:"userId"`
	UnreadCount    int       `json:"unread_count" firestore:"unreadCount"`
	JoinedAt       time.Time `json:"joined_at" firestore:"joinedAt"`
}

func ParticipantID(conversationID, userID string) string {
	return conversationID + "_" + userID
}

type Counterpart struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ConversationID  string      `json:"conversation_id"`
	LastMessage     string      `json:"last_message"`
	LastMessageTime time.Time   `json:"last_message_time"`
	Counterpart     Counterpart `json:"counterpart"`
	UnreadCount     int         `json:"unread_count"`
}

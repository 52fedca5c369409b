package repository

import (
	"context"
	"time"

	"directchat/internal/domain/entity"
)

type ConversationRepository interface {
	// CreateWithParticipants writes the conversation and one participant row per
	// member in a single transaction.
	CreateWithParticipants(ctx context.Context, conv *entity.Conversation, participants []*entity.Participant) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByIDs(ctx context.Context, ids []string) ([]*entity.Conversation, error)
	// ListDirectByMember returns non-group conversations that userID belongs to.
	ListDirectByMember(ctx context.Context, userID string) ([]*entity.Conversation, error)
	// UpdatePreview overwrites the preview fields, used to repair a stale preview.
	UpdatePreview(ctx context.Context, id, preview string, at time.Time) error
}

type ParticipantRepository interface {
	Get(ctx context.Context, conversationID, userID string) (*entity.Participant, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Participant, error)
	ResetUnread(ctx context.Context, conversationID, userID string) error
}

package repository

import (
	"context"

	"directchat/internal/domain/entity"
)

type MessageRepository interface {
	// CreateWithPreview inserts the message, sets the conversation preview and
	// time, and increments unread for every participant except the sender,
	// all in one transaction.
	CreateWithPreview(ctx context.Context, msg *entity.Message, preview string) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error)
	// Latest returns the newest message of the conversation, or NotFound when it is empty.
	Latest(ctx context.Context, conversationID string) (*entity.Message, error)
	Update(ctx context.Context, msg *entity.Message) error
	// Delete removes the message together with its read statuses.
	Delete(ctx context.Context, id string) error
}

type MessageStatusRepository interface {
	// Upsert writes the status keyed by (message, user); repeated calls leave one row.
	Upsert(ctx context.Context, status *entity.MessageStatus) error
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.MessageStatus, error)
}

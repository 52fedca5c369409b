package repository

import (
	"context"

	"directchat/internal/domain/entity"
)

type Subscription interface {
	Unsubscribe()
}

// ChangeFeed delivers row changes filtered by conversation. The subscription is
// established before the call returns; events that happen after that are delivered
// to the handler, on a goroutine owned by the feed.
type ChangeFeed interface {
	SubscribeMessages(ctx context.Context, conversationID string, handler func(entity.MessageEvent)) (Subscription, error)
	SubscribeStatuses(ctx context.Context, conversationID string, handler func(entity.StatusEvent)) (Subscription, error)
}

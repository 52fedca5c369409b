package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/internal/infrastructure/events"
	"directchat/internal/infrastructure/metrics"
	"directchat/internal/infrastructure/ratelimit"
	"directchat/internal/infrastructure/telemetry"
	ws "directchat/internal/infrastructure/websocket"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

type MessageUseCase struct {
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	profileRepo repository.ProfileRepository
	codec       *MessageCodec
	attachments *AttachmentUseCase
	readStatus  *ReadStatusUseCase
	notifier    Notifier
	publisher   events.Publisher
	rateLimiter *ratelimit.RateLimiter
	now         Clock
}

func NewMessageUseCase(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	profileRepo repository.ProfileRepository,
	attachments *AttachmentUseCase,
	readStatus *ReadStatusUseCase,
	notifier Notifier,
	publisher events.Publisher,
	rateLimiter *ratelimit.RateLimiter,
) *MessageUseCase {
	return &MessageUseCase{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		profileRepo: profileRepo,
		codec:       NewMessageCodec(attachments),
		attachments: attachments,
		readStatus:  readStatus,
		notifier:    notifier,
		publisher:   publisher,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

type SendMessageInput struct {
	ConversationID string
	Type           entity.MessageType
	Content        string
	File           *entity.AttachmentFile
	ThumbnailURL   string
}

// SendMessage stores a message and advances the conversation preview in one
// write. Viewers receive the row through the change feed.
func (uc *MessageUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "message.send",
		"conversation_id", input.ConversationID,
		"message_type", string(input.Type),
	)
	defer span.End()

	if allowed, wait := uc.rateLimiter.Allow(senderID, ratelimit.ActionSendMessage); !allowed {
		logger.Warn("SendMessage Rate Limited: user %s must wait %v", senderID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}

	conv, err := uc.convRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		logger.Error("SendMessage Error: conversation %s: %v", input.ConversationID, err)
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	msg, preview, err := uc.codec.Compose(ctx, senderID, ComposeInput{
		ConversationID: conv.ID,
		Type:           input.Type,
		Content:        input.Content,
		File:           input.File,
		ThumbnailURL:   input.ThumbnailURL,
	})
	if err != nil {
		logger.Warn("SendMessage Error: compose in %s: %v", conv.ID, err)
		return nil, err
	}
	msg.ID = uuid.New().String()
	msg.CreatedAt = uc.now()

	if err := uc.messageRepo.CreateWithPreview(ctx, msg, preview); err != nil {
		span.RecordError(err)
		logger.Error("SendMessage Error: store message in %s: %v", conv.ID, err)
		if msg.Metadata != nil && msg.Metadata.Path != "" {
			if rmErr := uc.attachments.Remove(context.WithoutCancel(ctx), msg.Metadata.Path); rmErr != nil {
				logger.Warn("SendMessage: orphaned attachment %s: %v", msg.Metadata.Path, rmErr)
			}
		}
		return nil, err
	}
	metrics.IncMessageSent(string(msg.MessageType))

	msg.SenderName = uc.senderName(ctx, senderID)

	_ = uc.publisher.Publish(ctx, events.RoutingMessageSent, events.Envelope{
		EventType:      events.RoutingMessageSent,
		ConversationID: conv.ID,
		ActorID:        senderID,
		OccurredAt:     msg.CreatedAt,
		Payload: map[string]interface{}{
			"message_id":   msg.ID,
			"message_type": msg.MessageType,
		},
	})
	for _, uid := range conv.ParticipantIDs {
		uc.notifier.SendToUser(uid, ws.WSMessage{
			Type:   ws.MessageTypeConversationUpdated,
			ChatID: conv.ID,
			Data: map[string]interface{}{
				"conversation_id":   conv.ID,
				"last_message":      preview,
				"last_message_time": msg.CreatedAt,
				"sender_id":         senderID,
			},
		})
	}

	return msg, nil
}

// EditMessage replaces the content of a text or emoji message. Only the sender may edit.
func (uc *MessageUseCase) EditMessage(ctx context.Context, userID, conversationID, messageID, content string) (*entity.Message, error) {
	msg, err := uc.ownMessage(ctx, userID, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.MessageType.IsAttachment() {
		return nil, errors.InvalidContent("attachment messages cannot be edited")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.InvalidContent("message content is empty")
	}

	msg.Content = content
	msg.IsEdited = true
	if err := uc.messageRepo.Update(ctx, msg); err != nil {
		logger.Error("EditMessage Error: %s: %v", messageID, err)
		return nil, err
	}
	msg.SenderName = uc.senderName(ctx, userID)

	_ = uc.publisher.Publish(ctx, events.RoutingMessageEdited, events.Envelope{
		EventType:      events.RoutingMessageEdited,
		ConversationID: conversationID,
		ActorID:        userID,
		OccurredAt:     uc.now(),
		Payload:        map[string]interface{}{"message_id": messageID},
	})
	return msg, nil
}

// DeleteMessage removes a message and, for attachments, its stored object.
// Only the sender may delete.
func (uc *MessageUseCase) DeleteMessage(ctx context.Context, userID, conversationID, messageID string) error {
	msg, err := uc.ownMessage(ctx, userID, conversationID, messageID)
	if err != nil {
		return err
	}

	if err := uc.messageRepo.Delete(ctx, messageID); err != nil {
		logger.Error("DeleteMessage Error: %s: %v", messageID, err)
		return err
	}

	uc.repairPreviewAfterDelete(ctx, msg)

	if msg.Metadata != nil && msg.Metadata.Path != "" {
		if err := uc.attachments.Remove(ctx, msg.Metadata.Path); err != nil {
			logger.Warn("DeleteMessage: failed to remove attachment %s: %v", msg.Metadata.Path, err)
		}
	}

	_ = uc.publisher.Publish(ctx, events.RoutingMessageDeleted, events.Envelope{
		EventType:      events.RoutingMessageDeleted,
		ConversationID: conversationID,
		ActorID:        userID,
		OccurredAt:     uc.now(),
		Payload:        map[string]interface{}{"message_id": messageID},
	})
	return nil
}

// repairPreviewAfterDelete points the preview at the newest remaining message
// when the deleted one was the newest. An emptied conversation gets an empty
// preview at its creation time.
func (uc *MessageUseCase) repairPreviewAfterDelete(ctx context.Context, deleted *entity.Message) {
	conv, err := uc.convRepo.GetByID(ctx, deleted.ConversationID)
	if err != nil {
		logger.Warn("DeleteMessage: load conversation %s: %v", deleted.ConversationID, err)
		return
	}
	if conv.LastMessageTime.After(deleted.CreatedAt) {
		return
	}

	preview, at := "", conv.CreatedAt
	latest, err := uc.messageRepo.Latest(ctx, conv.ID)
	switch {
	case err == nil:
		preview, at = Preview(latest), latest.CreatedAt
	case !errors.Is(err, errors.CodeNotFound):
		logger.Warn("DeleteMessage: latest message in %s: %v", conv.ID, err)
		return
	}

	if err := uc.convRepo.UpdatePreview(ctx, conv.ID, preview, at); err != nil {
		logger.Warn("DeleteMessage: preview repair for %s failed: %v", conv.ID, err)
	}
}

func (uc *MessageUseCase) ownMessage(ctx context.Context, userID, conversationID, messageID string) (*entity.Message, error) {
	msg, err := uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != conversationID {
		return nil, errors.NotFound("Message", nil)
	}
	if msg.SenderID != userID {
		return nil, errors.Forbidden("Only the sender can change this message", nil)
	}
	return msg, nil
}

// GetHistory returns the conversation's messages oldest first with sender
// names resolved, repairing a preview left behind by an interrupted send.
func (uc *MessageUseCase) GetHistory(ctx context.Context, viewerID, conversationID string) ([]*entity.Message, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	msgs, err := uc.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		logger.Error("GetHistory Error: conversation %s: %v", conversationID, err)
		return nil, err
	}
	uc.ResolveSenderNames(ctx, msgs)
	uc.reconcilePreview(ctx, conv, msgs)

	return msgs, nil
}

// LoadHistory is GetHistory for a viewer opening the conversation: messages from
// the counterpart are marked read and the viewer's unread counter is reset.
func (uc *MessageUseCase) LoadHistory(ctx context.Context, viewerID, conversationID string) ([]*entity.Message, error) {
	msgs, err := uc.GetHistory(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := uc.readStatus.MarkMessagesRead(ctx, viewerID, msgs); err != nil {
		logger.Warn("LoadHistory: mark read in %s for %s: %v", conversationID, viewerID, err)
	}
	if err := uc.readStatus.MarkConversationRead(ctx, viewerID, conversationID); err != nil {
		logger.Warn("LoadHistory: reset unread in %s for %s: %v", conversationID, viewerID, err)
	}
	return msgs, nil
}

// reconcilePreview rewrites the conversation preview when the newest message is
// later than the stored preview time.
func (uc *MessageUseCase) reconcilePreview(ctx context.Context, conv *entity.Conversation, msgs []*entity.Message) {
	if len(msgs) == 0 {
		return
	}
	latest := msgs[len(msgs)-1]
	if !conv.LastMessageTime.Before(latest.CreatedAt) {
		return
	}

	preview := Preview(latest)
	if err := uc.convRepo.UpdatePreview(ctx, conv.ID, preview, latest.CreatedAt); err != nil {
		logger.Warn("Reconcile: preview repair for %s failed: %v", conv.ID, err)
		return
	}
	logger.Info("Reconcile: repaired stale preview for conversation %s", conv.ID)
	conv.LastMessage = preview
	conv.LastMessageTime = latest.CreatedAt
}

// FetchMessage reads a single message with its sender name.
func (uc *MessageUseCase) FetchMessage(ctx context.Context, messageID string) (*entity.Message, error) {
	msg, err := uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	msg.SenderName = uc.senderName(ctx, msg.SenderID)
	return msg, nil
}

// ResolveSenderNames fills SenderName from profiles, falling back to "Unknown User".
func (uc *MessageUseCase) ResolveSenderNames(ctx context.Context, msgs []*entity.Message) {
	if len(msgs) == 0 {
		return
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, 2)
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}

	profiles, err := uc.profileRepo.GetByIDs(ctx, ids)
	if err != nil {
		logger.Warn("ResolveSenderNames: %v", err)
		profiles = nil
	}
	for _, m := range msgs {
		m.SenderName = unknownUsername
		if p, ok := profiles[m.SenderID]; ok && p.Username != "" {
			m.SenderName = p.Username
		}
	}
}

func (uc *MessageUseCase) senderName(ctx context.Context, userID string) string {
	p, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil || p.Username == "" {
		return unknownUsername
	}
	return p.Username
}

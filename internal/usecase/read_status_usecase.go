package usecase

import (
	"context"
	"time"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	ws "directchat/internal/infrastructure/websocket"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

type ReadStatusUseCase struct {
	statusRepo      repository.MessageStatusRepository
	participantRepo repository.ParticipantRepository
	messageRepo     repository.MessageRepository
	notifier        Notifier
	now             Clock
}

func NewReadStatusUseCase(
	statusRepo repository.MessageStatusRepository,
	participantRepo repository.ParticipantRepository,
	messageRepo repository.MessageRepository,
	notifier Notifier,
) *ReadStatusUseCase {
	return &ReadStatusUseCase{
		statusRepo:      statusRepo,
		participantRepo: participantRepo,
		messageRepo:     messageRepo,
		notifier:        notifier,
		now:             time.Now,
	}
}

// MarkRead records that userID read the message. Repeating it leaves a single
// status row.
func (uc *ReadStatusUseCase) MarkRead(ctx context.Context, userID, conversationID, messageID string) (*entity.MessageStatus, error) {
	msg, err := uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != conversationID {
		return nil, errors.NotFound("Message", nil)
	}
	if err := uc.ensureParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return uc.markMessage(ctx, userID, msg)
}

func (uc *ReadStatusUseCase) markMessage(ctx context.Context, userID string, msg *entity.Message) (*entity.MessageStatus, error) {
	readAt := uc.now()
	status := &entity.MessageStatus{
		MessageID:      msg.ID,
		UserID:         userID,
		ConversationID: msg.ConversationID,
		IsRead:         true,
		ReadAt:         &readAt,
	}
	if err := uc.statusRepo.Upsert(ctx, status); err != nil {
		logger.Error("MarkRead Error: message %s user %s: %v", msg.ID, userID, err)
		return nil, err
	}
	return status, nil
}

// MarkMessagesRead marks every message not sent by userID as read.
func (uc *ReadStatusUseCase) MarkMessagesRead(ctx context.Context, userID string, msgs []*entity.Message) error {
	for _, m := range msgs {
		if m.SenderID == userID {
			continue
		}
		if _, err := uc.markMessage(ctx, userID, m); err != nil {
			return err
		}
	}
	return nil
}

// MarkConversationRead resets the user's unread counter for the conversation.
func (uc *ReadStatusUseCase) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	if err := uc.participantRepo.ResetUnread(ctx, conversationID, userID); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return errors.Forbidden("You are not a participant of this conversation", err)
		}
		logger.Error("MarkConversationRead Error: conversation %s user %s: %v", conversationID, userID, err)
		return err
	}

	uc.notifier.SendToUser(userID, ws.WSMessage{
		Type:   ws.MessageTypeConversationUpdated,
		ChatID: conversationID,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"unread_count":    0,
		},
	})
	return nil
}

func (uc *ReadStatusUseCase) ListStatuses(ctx context.Context, userID, conversationID string) ([]*entity.MessageStatus, error) {
	if err := uc.ensureParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return uc.statusRepo.ListByConversation(ctx, conversationID)
}

func (uc *ReadStatusUseCase) ensureParticipant(ctx context.Context, conversationID, userID string) error {
	if _, err := uc.participantRepo.Get(ctx, conversationID, userID); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return errors.Forbidden("You are not a participant of this conversation", err)
		}
		return err
	}
	return nil
}

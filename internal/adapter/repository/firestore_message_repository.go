package repository

import (
	"context"
	stderrors "errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/pkg/errors"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) CreateWithPreview(ctx context.Context, msg *entity.Message, preview string) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	convRef := r.client.Collection(conversationsCollection).Doc(msg.ConversationID)
	msgRef := r.client.Collection(messagesCollection).Doc(msg.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Conversation", err)
			}
			return err
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return err
		}
		if !conv.HasParticipant(msg.SenderID) {
			return errors.Forbidden("Sender is not a participant of this conversation", nil)
		}

		if err := tx.Create(msgRef, msg); err != nil {
			return err
		}
		if err := tx.Update(convRef, []firestore.Update{
			{Path: "lastMessage", Value: preview},
			{Path: "lastMessageTime", Value: msg.CreatedAt},
		}); err != nil {
			return err
		}
		for _, uid := range conv.ParticipantIDs {
			if uid == msg.SenderID {
				continue
			}
			ref := r.client.Collection(participantsCollection).Doc(entity.ParticipantID(conv.ID, uid))
			if err := tx.Update(ref, []firestore.Update{
				{Path: "unreadCount", Value: firestore.Increment(1)},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return appErr
		}
		return errors.PartialWrite("Failed to store message", err)
	}

	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	doc, err := r.client.Collection(messagesCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Query("Failed to get message", err)
	}

	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	iter := messagesQuery(r.client, conversationID).Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Query("Failed to iterate messages", err)
		}

		msg, err := decodeMessage(doc)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (r *firestoreMessageRepository) Latest(ctx context.Context, conversationID string) (*entity.Message, error) {
	iter := r.client.Collection(messagesCollection).
		Where("conversationId", "==", conversationID).
		OrderBy("createdAt", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Message", nil)
	}
	if err != nil {
		return nil, errors.Query("Failed to query latest message", err)
	}
	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) Update(ctx context.Context, msg *entity.Message) error {
	msg.UpdatedAt = time.Now()
	_, err := r.client.Collection(messagesCollection).Doc(msg.ID).Update(ctx, []firestore.Update{
		{Path: "content", Value: msg.Content},
		{Path: "isEdited", Value: msg.IsEdited},
		{Path: "updatedAt", Value: msg.UpdatedAt},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("Message", err)
		}
		return errors.Internal("Failed to update message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, id string) error {
	msgRef := r.client.Collection(messagesCollection).Doc(id)
	statuses := r.client.Collection(messageStatusCollection).Where("messageId", "==", id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(statuses).GetAll()
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := tx.Delete(doc.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(msgRef)
	})
	if err != nil {
		return errors.Internal("Failed to delete message", err)
	}
	return nil
}

func messagesQuery(client *firestore.Client, conversationID string) firestore.Query {
	return client.Collection(messagesCollection).
		Where("conversationId", "==", conversationID).
		OrderBy("createdAt", firestore.Asc)
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	msg.ID = doc.Ref.ID
	return &msg, nil
}

type firestoreMessageStatusRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageStatusRepository(client *firestore.Client) repository.MessageStatusRepository {
	return &firestoreMessageStatusRepository{
		client: client,
	}
}

func (r *firestoreMessageStatusRepository) Upsert(ctx context.Context, st *entity.MessageStatus) error {
	st.ID = entity.MessageStatusID(st.MessageID, st.UserID)
	_, err := r.client.Collection(messageStatusCollection).Doc(st.ID).Set(ctx, st)
	if err != nil {
		return errors.Internal("Failed to upsert message status", err)
	}
	return nil
}

func (r *firestoreMessageStatusRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.MessageStatus, error) {
	docs, err := r.client.Collection(messageStatusCollection).
		Where("conversationId", "==", conversationID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Query("Failed to query message statuses", err)
	}

	statuses := make([]*entity.MessageStatus, 0, len(docs))
	for _, doc := range docs {
		var st entity.MessageStatus
		if err := doc.DataTo(&st); err != nil {
			continue
		}
		statuses = append(statuses, &st)
	}
	return statuses, nil
}

package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/pkg/errors"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) CreateWithParticipants(ctx context.Context, conv *entity.Conversation, participants []*entity.Participant) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	convRef := r.client.Collection(conversationsCollection).Doc(conv.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(convRef, conv); err != nil {
			return err
		}
		for _, p := range participants {
			p.ConversationID = conv.ID
			p.ID = entity.ParticipantID(conv.ID, p.UserID)
			if err := tx.Create(r.client.Collection(participantsCollection).Doc(p.ID), p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.PartialWrite("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Query("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conv.ID = doc.Ref.ID

	return &conv, nil
}

func (r *firestoreConversationRepository) ListByIDs(ctx context.Context, ids []string) ([]*entity.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.client.Collection(conversationsCollection).Doc(id))
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errors.Query("Failed to fetch conversations", err)
	}

	convs := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			continue
		}
		conv.ID = doc.Ref.ID
		convs = append(convs, &conv)
	}

	return convs, nil
}

func (r *firestoreConversationRepository) ListDirectByMember(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.client.Collection(conversationsCollection).
		Where("participantIds", "array-contains", userID).
		Where("isGroup", "==", false).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Query("Failed to query conversations", err)
	}

	convs := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			continue
		}
		conv.ID = doc.Ref.ID
		convs = append(convs, &conv)
	}

	return convs, nil
}

func (r *firestoreConversationRepository) UpdatePreview(ctx context.Context, id, preview string, at time.Time) error {
	_, err := r.client.Collection(conversationsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: preview},
		{Path: "lastMessageTime", Value: at},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to update conversation preview", err)
	}
	return nil
}

type firestoreParticipantRepository struct {
	client *firestore.Client
}

func NewFirestoreParticipantRepository(client *firestore.Client) repository.ParticipantRepository {
	return &firestoreParticipantRepository{
		client: client,
	}
}

func (r *firestoreParticipantRepository) Get(ctx context.Context, conversationID, userID string) (*entity.Participant, error) {
	doc, err := r.client.Collection(participantsCollection).Doc(entity.ParticipantID(conversationID, userID)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Participant", err)
		}
		return nil, errors.Query("Failed to get participant", err)
	}

	var p entity.Participant
	if err := doc.DataTo(&p); err != nil {
		return nil, errors.Internal("Failed to parse participant data", err)
	}
	return &p, nil
}

func (r *firestoreParticipantRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Participant, error) {
	return r.list(ctx, r.client.Collection(participantsCollection).Where("userId", "==", userID))
}

func (r *firestoreParticipantRepository) list(ctx context.Context, q firestore.Query) ([]*entity.Participant, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Query("Failed to query participants", err)
	}

	participants := make([]*entity.Participant, 0, len(docs))
	for _, doc := range docs {
		var p entity.Participant
		if err := doc.DataTo(&p); err != nil {
			continue
		}
		participants = append(participants, &p)
	}
	return participants, nil
}

func (r *firestoreParticipantRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	_, err := r.client.Collection(participantsCollection).Doc(entity.ParticipantID(conversationID, userID)).Update(ctx, []firestore.Update{
		{Path: "unreadCount", Value: 0},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("Participant", err)
		}
		return errors.Internal("Failed to reset unread count", err)
	}
	return nil
}

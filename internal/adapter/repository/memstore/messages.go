package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"directchat/internal/domain/entity"
	"directchat/pkg/errors"
)

type messageRepo struct{ s *Store }

func (r *messageRepo) CreateWithPreview(ctx context.Context, msg *entity.Message, preview string) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	r.s.mu.Lock()
	conv, ok := r.s.conversations[msg.ConversationID]
	if !ok {
		r.s.mu.Unlock()
		return errors.NotFound("Conversation", nil)
	}
	if !conv.HasParticipant(msg.SenderID) {
		r.s.mu.Unlock()
		return errors.Forbidden("Sender is not a participant of this conversation", nil)
	}
	if _, exists := r.s.messages[msg.ID]; exists {
		r.s.mu.Unlock()
		return errors.Conflict("Message already exists")
	}

	stored := msg.Clone()
	stored.SenderName = ""
	r.s.messages[stored.ID] = stored
	conv.LastMessage = preview
	conv.LastMessageTime = stored.CreatedAt
	for _, uid := range conv.ParticipantIDs {
		if uid == msg.SenderID {
			continue
		}
		if p, ok := r.s.participants[entity.ParticipantID(conv.ID, uid)]; ok {
			p.UnreadCount++
		}
	}
	event := entity.MessageEvent{Kind: entity.ChangeInsert, MessageID: stored.ID, Message: stored.Clone()}
	r.s.mu.Unlock()

	r.s.feed.publishMessage(msg.ConversationID, event)
	return nil
}

func (r *messageRepo) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return m.Clone(), nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.s.mu.RLock()
	var out []*entity.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *messageRepo) Latest(ctx context.Context, conversationID string) (*entity.Message, error) {
	all, _ := r.ListByConversation(ctx, conversationID)
	if len(all) == 0 {
		return nil, errors.NotFound("Message", nil)
	}
	return all[len(all)-1], nil
}

func (r *messageRepo) Update(ctx context.Context, msg *entity.Message) error {
	r.s.mu.Lock()
	m, ok := r.s.messages[msg.ID]
	if !ok {
		r.s.mu.Unlock()
		return errors.NotFound("Message", nil)
	}
	msg.UpdatedAt = time.Now()
	m.Content = msg.Content
	m.IsEdited = msg.IsEdited
	m.UpdatedAt = msg.UpdatedAt
	event := entity.MessageEvent{Kind: entity.ChangeUpdate, MessageID: m.ID, Message: m.Clone()}
	r.s.mu.Unlock()

	r.s.feed.publishMessage(m.ConversationID, event)
	return nil
}

func (r *messageRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	m, ok := r.s.messages[id]
	if !ok {
		r.s.mu.Unlock()
		return nil
	}
	delete(r.s.messages, id)
	for sid, st := range r.s.statuses {
		if st.MessageID == id {
			delete(r.s.statuses, sid)
		}
	}
	event := entity.MessageEvent{Kind: entity.ChangeDelete, MessageID: id, Message: m.Clone()}
	r.s.mu.Unlock()

	r.s.feed.publishMessage(m.ConversationID, event)
	return nil
}

type statusRepo struct{ s *Store }

func (r *statusRepo) Upsert(ctx context.Context, st *entity.MessageStatus) error {
	st.ID = entity.MessageStatusID(st.MessageID, st.UserID)

	r.s.mu.Lock()
	kind := entity.ChangeUpdate
	if _, ok := r.s.statuses[st.ID]; !ok {
		kind = entity.ChangeInsert
	}
	cp := *st
	r.s.statuses[st.ID] = &cp
	published := cp
	event := entity.StatusEvent{Kind: kind, Status: &published}
	r.s.mu.Unlock()

	r.s.feed.publishStatus(st.ConversationID, event)
	return nil
}

func (r *statusRepo) ListByConversation(ctx context.Context, conversationID string) ([]*entity.MessageStatus, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.MessageStatus
	for _, st := range r.s.statuses {
		if st.ConversationID == conversationID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

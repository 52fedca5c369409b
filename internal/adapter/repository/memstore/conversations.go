package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"directchat/internal/domain/entity"
	"directchat/pkg/errors"
)

type conversationRepo struct{ s *Store }

func (r *conversationRepo) CreateWithParticipants(ctx context.Context, conv *entity.Conversation, participants []*entity.Participant) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[conv.ID]; ok {
		return errors.Conflict("Conversation already exists")
	}
	for _, p := range participants {
		p.ConversationID = conv.ID
		p.ID = entity.ParticipantID(conv.ID, p.UserID)
		if _, ok := r.s.participants[p.ID]; ok {
			return errors.Conflict("Participant already exists")
		}
	}

	c := *conv
	c.ParticipantIDs = append([]string(nil), conv.ParticipantIDs...)
	r.s.conversations[c.ID] = &c
	for _, p := range participants {
		cp := *p
		r.s.participants[cp.ID] = &cp
	}
	return nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(c), nil
}

func (r *conversationRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entity.Conversation, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.conversations[id]; ok {
			out = append(out, cloneConversation(c))
		}
	}
	return out, nil
}

func (r *conversationRepo) ListDirectByMember(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Conversation
	for _, c := range r.s.conversations {
		if !c.IsGroup && c.HasParticipant(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	return out, nil
}

func (r *conversationRepo) UpdatePreview(ctx context.Context, id, preview string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	c.LastMessage = preview
	c.LastMessageTime = at
	return nil
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	cp := *c
	cp.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	return &cp
}

type participantRepo struct{ s *Store }

func (r *participantRepo) Get(ctx context.Context, conversationID, userID string) (*entity.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.participants[entity.ParticipantID(conversationID, userID)]
	if !ok {
		return nil, errors.NotFound("Participant", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *participantRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Participant, error) {
	return r.filter(func(p *entity.Participant) bool { return p.UserID == userID }), nil
}

func (r *participantRepo) filter(keep func(*entity.Participant) bool) []*entity.Participant {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Participant
	for _, p := range r.s.participants {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (r *participantRepo) ResetUnread(ctx context.Context, conversationID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.participants[entity.ParticipantID(conversationID, userID)]
	if !ok {
		return errors.NotFound("Participant", nil)
	}
	p.UnreadCount = 0
	return nil
}

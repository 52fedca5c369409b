package usecase

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/internal/infrastructure/events"
	"directchat/internal/infrastructure/ratelimit"
	"directchat/internal/infrastructure/telemetry"
	ws "directchat/internal/infrastructure/websocket"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

const counterpartLookupConcurrency = 8

type ConversationUseCase struct {
	convRepo        repository.ConversationRepository
	participantRepo repository.ParticipantRepository
	profileRepo     repository.ProfileRepository
	notifier        Notifier
	publisher       events.Publisher
	rateLimiter     *ratelimit.RateLimiter
	now             Clock
}

func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	participantRepo repository.ParticipantRepository,
	profileRepo repository.ProfileRepository,
	notifier Notifier,
	publisher events.Publisher,
	rateLimiter *ratelimit.RateLimiter,
) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo:        convRepo,
		participantRepo: participantRepo,
		profileRepo:     profileRepo,
		notifier:        notifier,
		publisher:       publisher,
		rateLimiter:     rateLimiter,
		now:             time.Now,
	}
}

// ListConversations returns the user's conversations, newest activity first,
// with one entry per counterpart. A counterpart whose profile cannot be read is
// shown as "Unknown User".
func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string) ([]*entity.ConversationSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "conversation.list", "user_id", userID)
	defer span.End()

	participations, err := uc.participantRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("ListConversations Error: participations for %s: %v", userID, err)
		return nil, err
	}
	if len(participations) == 0 {
		return []*entity.ConversationSummary{}, nil
	}

	unread := make(map[string]int, len(participations))
	ids := make([]string, 0, len(participations))
	for _, p := range participations {
		unread[p.ConversationID] = p.UnreadCount
		ids = append(ids, p.ConversationID)
	}

	convs, err := uc.convRepo.ListByIDs(ctx, ids)
	if err != nil {
		logger.Error("ListConversations Error: conversations for %s: %v", userID, err)
		return nil, err
	}

	summaries := make([]*entity.ConversationSummary, len(convs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(counterpartLookupConcurrency)
	for i, conv := range convs {
		i, conv := i, conv
		g.Go(func() error {
			summaries[i] = uc.summarize(gctx, userID, conv, unread[conv.ID])
			return nil
		})
	}
	_ = g.Wait()

	sortSummaries(summaries)
	return DedupeByCounterpart(summaries), nil
}

func (uc *ConversationUseCase) summarize(ctx context.Context, userID string, conv *entity.Conversation, unread int) *entity.ConversationSummary {
	counterpartID := conv.Counterpart(userID)
	username := unknownUsername
	if counterpartID != "" {
		profile, err := uc.profileRepo.GetByID(ctx, counterpartID)
		if err != nil {
			logger.Warn("ListConversations: counterpart %s of %s unresolved: %v", counterpartID, conv.ID, err)
		} else if profile.Username != "" {
			username = profile.Username
		}
	}

	return &entity.ConversationSummary{
		ConversationID:  conv.ID,
		LastMessage:     conv.LastMessage,
		LastMessageTime: conv.LastMessageTime,
		Counterpart:     entity.Counterpart{ID: counterpartID, Username: username},
		UnreadCount:     unread,
	}
}

// GetSummary returns a single conversation as seen by userID.
func (uc *ConversationUseCase) GetSummary(ctx context.Context, userID, conversationID string) (*entity.ConversationSummary, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	unread := 0
	if p, err := uc.participantRepo.Get(ctx, conversationID, userID); err == nil {
		unread = p.UnreadCount
	}
	return uc.summarize(ctx, userID, conv, unread), nil
}

// DedupeByCounterpart keeps one summary per counterpart: the one with the later
// last message time, or the first seen on a tie. Output keeps first-seen order.
func DedupeByCounterpart(items []*entity.ConversationSummary) []*entity.ConversationSummary {
	index := make(map[string]int, len(items))
	out := make([]*entity.ConversationSummary, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		key := it.Counterpart.ID
		if i, ok := index[key]; ok {
			if it.LastMessageTime.After(out[i].LastMessageTime) {
				out[i] = it
			}
			continue
		}
		index[key] = len(out)
		out = append(out, it)
	}
	return out
}

func sortSummaries(items []*entity.ConversationSummary) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].LastMessageTime.Equal(items[j].LastMessageTime) {
			return items[i].ConversationID < items[j].ConversationID
		}
		return items[i].LastMessageTime.After(items[j].LastMessageTime)
	})
}

// FindExistingConversation returns the non-group conversation whose members are
// exactly a and b, or nil. When duplicates exist the oldest is chosen, so the
// result does not depend on argument order.
func (uc *ConversationUseCase) FindExistingConversation(ctx context.Context, a, b string) (*entity.Conversation, error) {
	candidates, err := uc.convRepo.ListDirectByMember(ctx, a)
	if err != nil {
		logger.Error("FindExistingConversation Error: %s/%s: %v", a, b, err)
		return nil, err
	}

	var matches []*entity.Conversation
	for _, c := range candidates {
		if c.IsDirectBetween(a, b) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches[0], nil
}

// CreateConversation creates an empty direct conversation with both members at
// zero unread.
func (uc *ConversationUseCase) CreateConversation(ctx context.Context, a, b string) (*entity.Conversation, error) {
	if a == b {
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}
	if _, err := uc.profileRepo.GetByID(ctx, b); err != nil {
		logger.Warn("CreateConversation Error: recipient %s: %v", b, err)
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.NotFound("Recipient", err)
		}
		return nil, err
	}

	now := uc.now()
	conv := &entity.Conversation{
		ParticipantIDs:  []string{a, b},
		IsGroup:         false,
		LastMessage:     "",
		LastMessageTime: now,
		CreatedAt:       now,
	}
	participants := []*entity.Participant{
		{UserID: a, UnreadCount: 0, JoinedAt: now},
		{UserID: b, UnreadCount: 0, JoinedAt: now},
	}

	if err := uc.convRepo.CreateWithParticipants(ctx, conv, participants); err != nil {
		logger.Error("CreateConversation Error: %s/%s: %v", a, b, err)
		return nil, err
	}

	_ = uc.publisher.Publish(ctx, events.RoutingConversationCreated, events.Envelope{
		EventType:      events.RoutingConversationCreated,
		ConversationID: conv.ID,
		ActorID:        a,
		OccurredAt:     now,
		Payload:        map[string]interface{}{"participant_ids": conv.ParticipantIDs},
	})
	for _, uid := range conv.ParticipantIDs {
		uc.notifier.SendToUser(uid, ws.WSMessage{
			Type:   ws.MessageTypeConversationUpdated,
			ChatID: conv.ID,
			Data:   conv,
		})
	}

	return conv, nil
}

// GetOrCreateConversation returns the existing conversation between userID and
// recipientID, creating it on first contact.
func (uc *ConversationUseCase) GetOrCreateConversation(ctx context.Context, userID, recipientID string) (*entity.Conversation, bool, error) {
	if userID == recipientID {
		return nil, false, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	existing, err := uc.FindExistingConversation(ctx, userID, recipientID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionCreateConversation); !allowed {
		logger.Warn("GetOrCreateConversation Rate Limited: user %s must wait %v", userID, wait)
		return nil, false, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation")
	}

	conv, err := uc.CreateConversation(ctx, userID, recipientID)
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/internal/infrastructure/metrics"
	"directchat/pkg/logger"
)

// MessageStream is one viewer's live, created_at-ordered view of a
// conversation: the history plus every change delivered by the feed.
type MessageStream struct {
	conversationID string
	viewerID       string
	messages       *MessageUseCase
	reads          *ReadStatusUseCase
	onChange       func(entity.ChangeKind, *entity.Message)
	timeout        time.Duration

	mu      sync.Mutex
	items   []*entity.Message
	ready   bool
	pending []entity.MessageEvent
	sub     repository.Subscription
	closed  bool
}

type StreamOptions struct {
	// Lifetime bounds the feed subscription. When nil the subscription ends
	// with the ctx passed to OpenMessageStream.
	Lifetime context.Context
	Timeout  time.Duration
	// OnChange is called after every applied change. For resync the message is nil.
	OnChange func(entity.ChangeKind, *entity.Message)
}

// OpenMessageStream subscribes to the conversation before loading history so
// that no change is lost in between; events received during the load are
// applied afterwards and merged by message id. ctx bounds the history load and
// the drain of pending events.
func OpenMessageStream(
	ctx context.Context,
	feed repository.ChangeFeed,
	messages *MessageUseCase,
	reads *ReadStatusUseCase,
	viewerID, conversationID string,
	opts StreamOptions,
) (*MessageStream, error) {
	s := &MessageStream{
		conversationID: conversationID,
		viewerID:       viewerID,
		messages:       messages,
		reads:          reads,
		onChange:       opts.OnChange,
		timeout:        opts.Timeout,
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}

	lifetime := opts.Lifetime
	if lifetime == nil {
		lifetime = ctx
	}

	sub, err := feed.SubscribeMessages(lifetime, conversationID, func(ev entity.MessageEvent) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if !s.ready {
			s.pending = append(s.pending, ev)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		callCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Apply(callCtx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.sub = sub

	history, err := messages.LoadHistory(ctx, viewerID, conversationID)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}

	s.mu.Lock()
	s.items = history
	s.mu.Unlock()

	// Drain events that arrived while history was loading. New ones may be
	// queued while a batch is applied, so loop until none are left.
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		if len(batch) == 0 {
			s.ready = true
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()

		for _, ev := range batch {
			s.Apply(ctx, ev)
		}
	}

	return s, nil
}

// Apply merges one feed event into the stream. It reports whether the view changed.
func (s *MessageStream) Apply(ctx context.Context, ev entity.MessageEvent) bool {
	metrics.IncFeedEvent(string(ev.Kind))

	switch ev.Kind {
	case entity.ChangeInsert:
		return s.applyInsert(ctx, ev)
	case entity.ChangeUpdate:
		return s.applyUpdate(ev)
	case entity.ChangeDelete:
		return s.applyDelete(ev)
	case entity.ChangeResync:
		return s.applyResync(ctx, ev.Snapshot)
	}
	return false
}

func (s *MessageStream) applyInsert(ctx context.Context, ev entity.MessageEvent) bool {
	id := ev.MessageID
	if id == "" && ev.Message != nil {
		id = ev.Message.ID
	}

	s.mu.Lock()
	_, exists := s.indexOf(id)
	s.mu.Unlock()
	if exists {
		return false
	}

	msg, err := s.messages.FetchMessage(ctx, id)
	if err != nil {
		if ev.Message == nil {
			logger.Warn("MessageStream: insert %s in %s could not be fetched: %v", id, s.conversationID, err)
			return false
		}
		msg = ev.Message.Clone()
		s.messages.ResolveSenderNames(ctx, []*entity.Message{msg})
	}

	s.mu.Lock()
	if _, exists := s.indexOf(id); exists {
		s.mu.Unlock()
		return false
	}
	s.insertSorted(msg)
	s.mu.Unlock()

	// The viewer has the conversation open, so the counter the send just
	// incremented is reset along with the status row.
	if msg.SenderID != s.viewerID {
		if _, err := s.reads.markMessage(ctx, s.viewerID, msg); err != nil {
			logger.Warn("MessageStream: mark read %s for %s: %v", msg.ID, s.viewerID, err)
		} else if err := s.reads.MarkConversationRead(ctx, s.viewerID, s.conversationID); err != nil {
			logger.Warn("MessageStream: reset unread in %s for %s: %v", s.conversationID, s.viewerID, err)
		}
	}
	s.notify(entity.ChangeInsert, msg)
	return true
}

func (s *MessageStream) applyUpdate(ev entity.MessageEvent) bool {
	if ev.Message == nil {
		return false
	}

	s.mu.Lock()
	i, ok := s.indexOf(ev.Message.ID)
	if !ok {
		s.mu.Unlock()
		return false
	}
	merged := ev.Message.Clone()
	merged.SenderName = s.items[i].SenderName
	merged.CreatedAt = s.items[i].CreatedAt
	s.items[i] = merged
	s.mu.Unlock()

	s.notify(entity.ChangeUpdate, merged)
	return true
}

func (s *MessageStream) applyDelete(ev entity.MessageEvent) bool {
	id := ev.MessageID
	if id == "" && ev.Message != nil {
		id = ev.Message.ID
	}

	s.mu.Lock()
	i, ok := s.indexOf(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.mu.Unlock()

	s.notify(entity.ChangeDelete, removed)
	return true
}

func (s *MessageStream) applyResync(ctx context.Context, snapshot []*entity.Message) bool {
	items := make([]*entity.Message, 0, len(snapshot))
	for _, m := range snapshot {
		items = append(items, m.Clone())
	}
	sortMessages(items)
	s.messages.ResolveSenderNames(ctx, items)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.notify(entity.ChangeResync, nil)
	return true
}

// insertSorted places msg after every message created at or before it.
func (s *MessageStream) insertSorted(msg *entity.Message) {
	i := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].CreatedAt.After(msg.CreatedAt)
	})
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = msg
}

func (s *MessageStream) indexOf(id string) (int, bool) {
	for i, m := range s.items {
		if m.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *MessageStream) notify(kind entity.ChangeKind, msg *entity.Message) {
	if s.onChange != nil {
		s.onChange(kind, msg)
	}
}

// Messages returns a copy of the current ordered view.
func (s *MessageStream) Messages() []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.Message, len(s.items))
	for i, m := range s.items {
		out[i] = m.Clone()
	}
	return out
}

func (s *MessageStream) ConversationID() string {
	return s.conversationID
}

// Close stops the subscription. Further feed events are ignored.
func (s *MessageStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func sortMessages(msgs []*entity.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

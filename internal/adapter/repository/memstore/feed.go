package memstore

import (
	"context"
	"sync"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
)

const subscriptionBuffer = 256

// Feed fans repository writes out to subscribers of the affected conversation.
// Each subscription has its own queue and delivery goroutine, so events reach a
// handler in write order.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	id             int
	conversationID string
	onMessage      func(entity.MessageEvent)
	onStatus       func(entity.StatusEvent)
	queue          chan func()
	done           chan struct{}
	once           sync.Once
	feed           *Feed
}

func newFeed() *Feed {
	return &Feed{subs: make(map[int]*subscription)}
}

var _ repository.ChangeFeed = (*Feed)(nil)

func (f *Feed) SubscribeMessages(ctx context.Context, conversationID string, handler func(entity.MessageEvent)) (repository.Subscription, error) {
	return f.add(ctx, &subscription{conversationID: conversationID, onMessage: handler}), nil
}

func (f *Feed) SubscribeStatuses(ctx context.Context, conversationID string, handler func(entity.StatusEvent)) (repository.Subscription, error) {
	return f.add(ctx, &subscription{conversationID: conversationID, onStatus: handler}), nil
}

// Resync delivers a full snapshot to every message subscriber of the
// conversation, as a reconnecting remote feed would.
func (f *Feed) Resync(conversationID string, snapshot []*entity.Message) {
	f.publishMessage(conversationID, entity.MessageEvent{Kind: entity.ChangeResync, Snapshot: snapshot})
}

func (f *Feed) add(ctx context.Context, sub *subscription) *subscription {
	sub.queue = make(chan func(), subscriptionBuffer)
	sub.done = make(chan struct{})
	sub.feed = f

	f.mu.Lock()
	f.nextID++
	sub.id = f.nextID
	f.subs[sub.id] = sub
	f.mu.Unlock()

	go sub.run()
	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()
	return sub
}

func (s *subscription) run() {
	for {
		select {
		case fn := <-s.queue:
			fn()
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
		close(s.done)
	})
}

func (s *subscription) enqueue(fn func()) {
	select {
	case s.queue <- fn:
	case <-s.done:
	}
}

func (f *Feed) targets(conversationID string, messages bool) []*subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*subscription
	for _, s := range f.subs {
		if s.conversationID != conversationID {
			continue
		}
		if messages && s.onMessage != nil || !messages && s.onStatus != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f *Feed) publishMessage(conversationID string, ev entity.MessageEvent) {
	for _, s := range f.targets(conversationID, true) {
		handler := s.onMessage
		e := ev
		if e.Message != nil {
			e.Message = e.Message.Clone()
		}
		s.enqueue(func() { handler(e) })
	}
}

func (f *Feed) publishStatus(conversationID string, ev entity.StatusEvent) {
	for _, s := range f.targets(conversationID, false) {
		handler := s.onStatus
		e := ev
		s.enqueue(func() { handler(e) })
	}
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	subs := make([]*subscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

package usecase

import (
	"sync"
	"time"

	"directchat/internal/domain/entity"
)

type typingKey struct {
	conversationID string
	userID         string
}

type typingState struct {
	timer *time.Timer
	gen   uint64
}

// TypingTracker debounces keystrokes into typing on/off events per
// (conversation, user). The first keystroke announces typing; the indicator is
// cleared once no keystroke arrives for the idle period.
type TypingTracker struct {
	idle      time.Duration
	broadcast func(entity.TypingEvent)
	now       Clock

	mu     sync.Mutex
	active map[typingKey]*typingState
	gen    uint64
}

func NewTypingTracker(idle time.Duration, broadcast func(entity.TypingEvent)) *TypingTracker {
	return &TypingTracker{
		idle:      idle,
		broadcast: broadcast,
		now:       time.Now,
		active:    make(map[typingKey]*typingState),
	}
}

func (t *TypingTracker) Keystroke(conversationID, userID string) {
	key := typingKey{conversationID, userID}

	t.mu.Lock()
	t.gen++
	gen := t.gen
	st, typing := t.active[key]
	if typing {
		st.timer.Stop()
		st.gen = gen
		st.timer = time.AfterFunc(t.idle, func() { t.expire(key, gen) })
		t.mu.Unlock()
		return
	}
	t.active[key] = &typingState{
		gen:   gen,
		timer: time.AfterFunc(t.idle, func() { t.expire(key, gen) }),
	}
	t.mu.Unlock()

	t.emit(key, true)
}

func (t *TypingTracker) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	st, ok := t.active[key]
	if !ok || st.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.active, key)
	t.mu.Unlock()

	t.emit(key, false)
}

// Stop clears the indicator immediately if the user is typing.
func (t *TypingTracker) Stop(conversationID, userID string) {
	key := typingKey{conversationID, userID}

	t.mu.Lock()
	st, ok := t.active[key]
	if ok {
		st.timer.Stop()
		delete(t.active, key)
	}
	t.mu.Unlock()

	if ok {
		t.emit(key, false)
	}
}

func (t *TypingTracker) IsTyping(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[typingKey{conversationID, userID}]
	return ok
}

func (t *TypingTracker) emit(key typingKey, typing bool) {
	t.broadcast(entity.TypingEvent{
		ConversationID: key.conversationID,
		UserID:         key.userID,
		IsTyping:       typing,
		At:             t.now(),
	})
}

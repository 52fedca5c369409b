package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directchat/internal/domain/entity"
)

type typingLog struct {
	mu     sync.Mutex
	events []entity.TypingEvent
}

func (l *typingLog) add(ev entity.TypingEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *typingLog) states() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]bool, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.IsTyping
	}
	return out
}

func TestTypingTrackerDebouncesKeystrokes(t *testing.T) {
	log := &typingLog{}
	tracker := NewTypingTracker(60*time.Millisecond, log.add)

	tracker.Keystroke("c1", "alice")
	tracker.Keystroke("c1", "alice")
	tracker.Keystroke("c1", "alice")

	assert.Equal(t, []bool{true}, log.states())
	assert.True(t, tracker.IsTyping("c1", "alice"))

	require.Eventually(t, func() bool {
		return len(log.states()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, false}, log.states())
	assert.False(t, tracker.IsTyping("c1", "alice"))
}

func TestTypingTrackerKeystrokeExtendsIdle(t *testing.T) {
	log := &typingLog{}
	tracker := NewTypingTracker(80*time.Millisecond, log.add)

	tracker.Keystroke("c1", "alice")
	time.Sleep(40 * time.Millisecond)
	tracker.Keystroke("c1", "alice")
	time.Sleep(50 * time.Millisecond)

	// 90ms after the first keystroke, but only 50ms after the last one.
	assert.True(t, tracker.IsTyping("c1", "alice"))

	require.Eventually(t, func() bool {
		return !tracker.IsTyping("c1", "alice")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, false}, log.states())
}

func TestTypingTrackerStopClearsImmediately(t *testing.T) {
	log := &typingLog{}
	tracker := NewTypingTracker(30*time.Millisecond, log.add)

	tracker.Keystroke("c1", "alice")
	tracker.Stop("c1", "alice")
	assert.Equal(t, []bool{true, false}, log.states())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []bool{true, false}, log.states())

	tracker.Stop("c1", "alice")
	assert.Len(t, log.states(), 2)
}

func TestTypingTrackerTracksUsersSeparately(t *testing.T) {
	log := &typingLog{}
	tracker := NewTypingTracker(time.Minute, log.add)

	tracker.Keystroke("c1", "alice")
	tracker.Keystroke("c1", "bob")
	tracker.Keystroke("c2", "alice")
	tracker.Stop("c1", "bob")

	assert.True(t, tracker.IsTyping("c1", "alice"))
	assert.False(t, tracker.IsTyping("c1", "bob"))
	assert.True(t, tracker.IsTyping("c2", "alice"))
	assert.Equal(t, []bool{true, true, true, false}, log.states())

	tracker.Stop("c1", "alice")
	tracker.Stop("c2", "alice")
}

func TestBroadcastTypingSkipsTypist(t *testing.T) {
	n := &recordingNotifier{}
	BroadcastTyping(n)(entity.TypingEvent{ConversationID: "c1", UserID: "alice", IsTyping: true})

	require.Len(t, n.sent, 1)
	assert.Equal(t, "c1", n.sent[0].room)
	assert.Equal(t, "alice", n.sent[0].except)
}

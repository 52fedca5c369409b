package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"directchat/internal/adapter/repository/memstore"
	"directchat/internal/domain/entity"
	"directchat/internal/infrastructure/ratelimit"
	ws "directchat/internal/infrastructure/websocket"
	"directchat/internal/mocks"
)

type sentMessage struct {
	userID string
	room   string
	except string
	msg    ws.WSMessage
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) SendToUser(userID string, msg ws.WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{userID: userID, msg: msg})
}

func (n *recordingNotifier) BroadcastToRoomExcept(conversationID, exceptUserID string, msg ws.WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{room: conversationID, except: exceptUserID, msg: msg})
}

func (n *recordingNotifier) ofType(t string) []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMessage
	for _, s := range n.sent {
		if s.msg.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// stepClock advances by one millisecond on every read so stored rows get
// distinct, increasing timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	ctx           context.Context
	store         *memstore.Store
	blobs         *memstore.BlobStore
	notifier      *recordingNotifier
	publisher     *mocks.PublisherMock
	clock         *stepClock
	attachments   *AttachmentUseCase
	reads         *ReadStatusUseCase
	conversations *ConversationUseCase
	messages      *MessageUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	t.Cleanup(func() { store.Close() })

	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	limiter := ratelimit.NewRateLimiter(map[string]ratelimit.Limit{
		ratelimit.ActionSendMessage:        {PerMinute: 6000, Burst: 1000},
		ratelimit.ActionCreateConversation: {PerMinute: 6000, Burst: 1000},
		ratelimit.ActionTyping:             {PerMinute: 6000, Burst: 1000},
	})

	f := &fixture{
		ctx:       context.Background(),
		store:     store,
		blobs:     memstore.NewBlobStore("https://blobs.test"),
		notifier:  &recordingNotifier{},
		publisher: publisher,
		clock:     newStepClock(),
	}

	f.attachments = NewAttachmentUseCase(f.blobs, 10<<20)
	f.attachments.now = f.clock.Now
	f.reads = NewReadStatusUseCase(store.Statuses(), store.Participants(), store.Messages(), f.notifier)
	f.reads.now = f.clock.Now
	f.conversations = NewConversationUseCase(store.Conversations(), store.Participants(), store.Profiles(), f.notifier, publisher, limiter)
	f.conversations.now = f.clock.Now
	f.messages = NewMessageUseCase(store.Messages(), store.Conversations(), store.Profiles(), f.attachments, f.reads, f.notifier, publisher, limiter)
	f.messages.now = f.clock.Now

	for id, name := range map[string]string{"alice": "Alice", "bob": "Bob", "carol": "Carol"} {
		require.NoError(t, store.Profiles().Upsert(f.ctx, &entity.Profile{ID: id, Username: name}))
	}
	return f
}

func (f *fixture) conversation(t *testing.T, a, b string) *entity.Conversation {
	t.Helper()
	conv, err := f.conversations.CreateConversation(f.ctx, a, b)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, senderID, conversationID, text string) *entity.Message {
	t.Helper()
	msg, err := f.messages.SendMessage(f.ctx, senderID, SendMessageInput{
		ConversationID: conversationID,
		Type:           entity.MessageTypeText,
		Content:        text,
	})
	require.NoError(t, err)
	return msg
}

func (f *fixture) unread(t *testing.T, conversationID, userID string) int {
	t.Helper()
	p, err := f.store.Participants().Get(f.ctx, conversationID, userID)
	require.NoError(t, err)
	return p.UnreadCount
}

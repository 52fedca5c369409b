package memstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directchat/internal/domain/entity"
	"directchat/pkg/errors"
)

func seedConversation(t *testing.T, s *Store, a, b string) *entity.Conversation {
	t.Helper()
	conv := &entity.Conversation{ParticipantIDs: []string{a, b}}
	err := s.Conversations().CreateWithParticipants(context.Background(), conv, []*entity.Participant{
		{UserID: a}, {UserID: b},
	})
	require.NoError(t, err)
	return conv
}

func TestCreateWithPreviewUpdatesConversationAndUnread(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()
	conv := seedConversation(t, s, "alice", "bob")

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		msg := &entity.Message{
			ConversationID: conv.ID,
			SenderID:       "alice",
			Content:        fmt.Sprintf("hi %d", i),
			MessageType:    entity.MessageTypeText,
			CreatedAt:      at.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.Messages().CreateWithPreview(ctx, msg, msg.Content))
		assert.NotEmpty(t, msg.ID)
	}

	got, err := s.Conversations().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi 2", got.LastMessage)
	assert.True(t, got.LastMessageTime.Equal(at.Add(2*time.Second)))

	bob, err := s.Participants().Get(ctx, conv.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, bob.UnreadCount)

	alice, err := s.Participants().Get(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, alice.UnreadCount)

	require.NoError(t, s.Participants().ResetUnread(ctx, conv.ID, "bob"))
	bob, _ = s.Participants().Get(ctx, conv.ID, "bob")
	assert.Equal(t, 0, bob.UnreadCount)
}

func TestCreateWithPreviewRejectsOutsider(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()
	conv := seedConversation(t, s, "alice", "bob")

	err := s.Messages().CreateWithPreview(ctx, &entity.Message{ConversationID: conv.ID, SenderID: "carol"}, "x")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	err = s.Messages().CreateWithPreview(ctx, &entity.Message{ConversationID: "missing", SenderID: "alice"}, "x")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	msgs, _ := s.Messages().ListByConversation(ctx, conv.ID)
	assert.Empty(t, msgs)
}

func TestDuplicateConversationIDConflicts(t *testing.T) {
	s := New()
	defer s.Close()
	conv := seedConversation(t, s, "alice", "bob")

	err := s.Conversations().CreateWithParticipants(context.Background(),
		&entity.Conversation{ID: conv.ID, ParticipantIDs: []string{"alice", "bob"}}, nil)
	assert.True(t, errors.Is(err, errors.CodeConflict))
}

func TestStatusUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Statuses().Upsert(ctx, &entity.MessageStatus{
			MessageID: "m1", UserID: "bob", ConversationID: "c1", IsRead: true, ReadAt: &now,
		}))
	}

	list, err := s.Statuses().ListByConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.MessageStatusID("m1", "bob"), list[0].ID)
}

func TestDeleteRemovesStatusesOfThatMessageOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()
	conv := seedConversation(t, s, "alice", "bob")

	var msgs []*entity.Message
	for _, content := range []string{"a", "b"} {
		m := &entity.Message{ConversationID: conv.ID, SenderID: "alice", Content: content}
		require.NoError(t, s.Messages().CreateWithPreview(ctx, m, content))
		require.NoError(t, s.Statuses().Upsert(ctx, &entity.MessageStatus{
			MessageID: m.ID, UserID: "bob", ConversationID: conv.ID, IsRead: true,
		}))
		msgs = append(msgs, m)
	}

	require.NoError(t, s.Messages().Delete(ctx, msgs[0].ID))

	list, err := s.Statuses().ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, msgs[1].ID, list[0].MessageID)

	latest, err := s.Messages().Latest(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, msgs[1].ID, latest.ID)
}

func TestFeedDeliversEventsInWriteOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()
	defer s.Close()
	conv := seedConversation(t, s, "alice", "bob")

	var mu sync.Mutex
	var seen []string
	_, err := s.Feed().SubscribeMessages(ctx, conv.ID, func(ev entity.MessageEvent) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Kind == entity.ChangeInsert {
			seen = append(seen, ev.Message.Content)
		}
	})
	require.NoError(t, err)

	const n = 50
	var want []string
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("m%02d", i)
		want = append(want, content)
		require.NoError(t, s.Messages().CreateWithPreview(ctx, &entity.Message{
			ConversationID: conv.ID, SenderID: "alice", Content: content, MessageType: entity.MessageTypeText,
		}, content))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == n
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, seen)
}

func TestFeedScopesToConversationAndStopsOnCancel(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()
	c1 := seedConversation(t, s, "alice", "bob")
	c2 := seedConversation(t, s, "alice", "carol")

	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan entity.MessageEvent, 10)
	_, err := s.Feed().SubscribeMessages(subCtx, c1.ID, func(ev entity.MessageEvent) { events <- ev })
	require.NoError(t, err)

	require.NoError(t, s.Messages().CreateWithPreview(ctx, &entity.Message{ConversationID: c2.ID, SenderID: "alice"}, "x"))
	msg := &entity.Message{ConversationID: c1.ID, SenderID: "alice", Content: "hello"}
	require.NoError(t, s.Messages().CreateWithPreview(ctx, msg, "hello"))

	select {
	case ev := <-events:
		assert.Equal(t, entity.ChangeInsert, ev.Kind)
		assert.Equal(t, msg.ID, ev.MessageID)
	case <-time.After(time.Second):
		t.Fatal("expected an insert event")
	}

	cancel()
	require.Eventually(t, func() bool {
		return len(s.feed.targets(c1.ID, true)) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Messages().Delete(ctx, msg.ID))
	assert.Never(t, func() bool { return len(events) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestBlobStoreNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	b := NewBlobStore("http://localhost:8080/blobs/")

	require.NoError(t, b.Upload(ctx, "conv/a.png", bytes.NewReader([]byte("one")), "image/png"))
	err := b.Upload(ctx, "conv/a.png", bytes.NewReader([]byte("two")), "image/png")
	assert.True(t, errors.Is(err, errors.CodeUpload))

	obj, ok := b.Object("conv/a.png")
	require.True(t, ok)
	assert.Equal(t, []byte("one"), obj.Data)
	assert.Equal(t, "http://localhost:8080/blobs/conv/a.png", b.PublicURL("conv/a.png"))

	require.NoError(t, b.Remove(ctx, []string{"conv/a.png", "conv/missing"}))
	assert.Equal(t, 0, b.Len())
}

package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "directchat/internal/infrastructure/websocket"
	"directchat/pkg/errors"
)

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := f.send(t, "alice", conv.ID, "hello")

	first, err := f.reads.MarkRead(f.ctx, "bob", conv.ID, msg.ID)
	require.NoError(t, err)
	second, err := f.reads.MarkRead(f.ctx, "bob", conv.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	statuses, err := f.reads.ListStatuses(f.ctx, "alice", conv.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, msg.ID, statuses[0].MessageID)
	assert.True(t, statuses[0].IsRead)
	require.NotNil(t, statuses[0].ReadAt)
}

func TestMarkReadRejectsMismatchedConversation(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "alice", "bob")
	other := f.conversation(t, "alice", "carol")
	msg := f.send(t, "alice", conv.ID, "hello")

	_, err := f.reads.MarkRead(f.ctx, "alice", other.ID, msg.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMarkReadRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := f.send(t, "alice", conv.ID, "hello")

	_, err := f.reads.MarkRead(f.ctx, "carol", conv.ID, msg.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestMarkConversationReadResetsUnread(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "alice", "bob")
	f.send(t, "alice", conv.ID, "one")
	f.send(t, "alice", conv.ID, "two")
	require.Equal(t, 2, f.unread(t, conv.ID, "bob"))

	require.NoError(t, f.reads.MarkConversationRead(f.ctx, "bob", conv.ID))
	assert.Equal(t, 0, f.unread(t, conv.ID, "bob"))

	var reset bool
	for _, s := range f.notifier.ofType(ws.MessageTypeConversationUpdated) {
		data, ok := s.msg.Data.(map[string]interface{})
		if ok && s.userID == "bob" && data["unread_count"] == 0 {
			reset = true
		}
	}
	assert.True(t, reset, "bob should be told his unread count is zero")
}

func TestMarkConversationReadNonParticipant(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "alice", "bob")

	err := f.reads.MarkConversationRead(f.ctx, "carol", conv.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directchat/internal/adapter/repository/memstore"
	"directchat/internal/domain/entity"
	"directchat/pkg/errors"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		msg  entity.Message
		want string
	}{
		{"short text", entity.Message{MessageType: entity.MessageTypeText, Content: "hi"}, "hi"},
		{"exactly thirty", entity.Message{MessageType: entity.MessageTypeText, Content: strings.Repeat("x", 30)}, strings.Repeat("x", 30)},
		{"long text", entity.Message{MessageType: entity.MessageTypeText, Content: strings.Repeat("y", 31)}, strings.Repeat("y", 30) + "..."},
		{"multibyte text", entity.Message{MessageType: entity.MessageTypeText, Content: strings.Repeat("é", 35)}, strings.Repeat("é", 30) + "..."},
		{"image", entity.Message{MessageType: entity.MessageTypeImage}, "📷 Image"},
		{"named file", entity.Message{MessageType: entity.MessageTypeFile, Metadata: &entity.MessageMetadata{FileName: "cv.pdf"}}, "📎 cv.pdf"},
		{"unnamed file", entity.Message{MessageType: entity.MessageTypeFile}, "📎 File"},
		{"audio", entity.Message{MessageType: entity.MessageTypeAudio}, "🎤 Audio message"},
		{"emoji", entity.Message{MessageType: entity.MessageTypeEmoji, Content: "🎉"}, "🎉"},
		{"empty emoji", entity.Message{MessageType: entity.MessageTypeEmoji}, "😊"},
		{"unknown type", entity.Message{MessageType: "sticker"}, "Message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			assert.Equal(t, tt.want, Preview(&msg))
		})
	}
}

func TestInferMessageType(t *testing.T) {
	assert.Equal(t, entity.MessageTypeImage, InferMessageType("image/webp"))
	assert.Equal(t, entity.MessageTypeAudio, InferMessageType("audio/mpeg"))
	assert.Equal(t, entity.MessageTypeFile, InferMessageType("application/zip"))
	assert.Equal(t, entity.MessageTypeFile, InferMessageType(""))
}

func TestComposeValidation(t *testing.T) {
	codec := NewMessageCodec(NewAttachmentUseCase(memstore.NewBlobStore("https://blobs.test"), 1<<20))
	ctx := context.Background()

	_, _, err := codec.Compose(ctx, "alice", ComposeInput{ConversationID: "c1", Type: "sticker", Content: "x"})
	assert.True(t, errors.Is(err, errors.CodeInvalidContent))

	_, _, err = codec.Compose(ctx, "alice", ComposeInput{ConversationID: "c1", Type: entity.MessageTypeImage})
	assert.True(t, errors.Is(err, errors.CodeInvalidContent))

	_, _, err = codec.Compose(ctx, "alice", ComposeInput{ConversationID: "c1", Type: entity.MessageTypeEmoji, Content: ""})
	assert.True(t, errors.Is(err, errors.CodeInvalidContent))

	msg, preview, err := codec.Compose(ctx, "alice", ComposeInput{ConversationID: "c1", Content: "  spaced  "})
	require.NoError(t, err)
	assert.Equal(t, entity.MessageTypeText, msg.MessageType)
	assert.Equal(t, "  spaced  ", msg.Content)
	assert.Equal(t, "  spaced  ", preview)
	assert.Nil(t, msg.Metadata)
}

package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"directchat/internal/domain/entity"
	"directchat/pkg/errors"
)

const previewTextLimit = 30

type ComposeInput struct {
	ConversationID string
	Type           entity.MessageType
	Content        string
	File           *entity.AttachmentFile
	ThumbnailURL   string
}

// MessageCodec turns a composed message into a storable row and its preview.
type MessageCodec struct {
	attachments *AttachmentUseCase
}

func NewMessageCodec(attachments *AttachmentUseCase) *MessageCodec {
	return &MessageCodec{attachments: attachments}
}

// Compose validates the input, uploads any binary payload and returns the row
// to insert with its preview. Text and emoji content is stored verbatim.
func (c *MessageCodec) Compose(ctx context.Context, senderID string, in ComposeInput) (*entity.Message, string, error) {
	msgType := in.Type
	if msgType == "" {
		if in.File != nil {
			msgType = InferMessageType(in.File.ContentType)
		} else {
			msgType = entity.MessageTypeText
		}
	}
	if !msgType.Valid() {
		return nil, "", errors.InvalidContent("unsupported message type " + string(msgType))
	}

	msg := &entity.Message{
		ConversationID: in.ConversationID,
		SenderID:       senderID,
		MessageType:    msgType,
	}

	if !msgType.IsAttachment() {
		if strings.TrimSpace(in.Content) == "" {
			return nil, "", errors.InvalidContent(string(msgType) + " message content is empty")
		}
		msg.Content = in.Content
		return msg, Preview(msg), nil
	}

	if in.File == nil {
		return nil, "", errors.InvalidContent(string(msgType) + " message requires a file")
	}
	stored, err := c.attachments.Upload(ctx, in.ConversationID, in.File)
	if err != nil {
		return nil, "", err
	}

	msg.Content = stored.PublicURL
	msg.Metadata = &entity.MessageMetadata{
		FileName:     in.File.Name,
		FileSize:     in.File.Size,
		MimeType:     stored.ContentType,
		Path:         stored.StoragePath,
		ThumbnailURL: in.ThumbnailURL,
	}
	if msgType == entity.MessageTypeAudio {
		msg.Metadata.Duration = in.File.Duration
	}

	return msg, Preview(msg), nil
}

// Preview renders the conversation list line for a message.
func Preview(msg *entity.Message) string {
	switch msg.MessageType {
	case entity.MessageTypeImage:
		return "📷 Image"
	case entity.MessageTypeFile:
		if msg.Metadata != nil && msg.Metadata.FileName != "" {
			return "📎 " + msg.Metadata.FileName
		}
		return "📎 File"
	case entity.MessageTypeAudio:
		return "🎤 Audio message"
	case entity.MessageTypeEmoji:
		if msg.Content == "" {
			return "😊"
		}
		return msg.Content
	case entity.MessageTypeText:
		return truncate(msg.Content, previewTextLimit)
	default:
		return "Message"
	}
}

// truncate cuts s to limit characters, appending "..." when anything was cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// InferMessageType maps a MIME type to image, audio or file.
func InferMessageType(contentType string) entity.MessageType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return entity.MessageTypeImage
	case strings.HasPrefix(contentType, "audio/"):
		return entity.MessageTypeAudio
	default:
		return entity.MessageTypeFile
	}
}

package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"directchat/internal/domain/entity"
	"directchat/internal/usecase"
	"directchat/pkg/errors"
	"directchat/pkg/response"
)

type MessageHandler struct {
	messageUseCase    *usecase.MessageUseCase
	readStatusUseCase *usecase.ReadStatusUseCase
	maxUploadBytes    int64
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase, readStatusUseCase *usecase.ReadStatusUseCase, maxUploadBytes int64) *MessageHandler {
	return &MessageHandler{
		messageUseCase:    messageUseCase,
		readStatusUseCase: readStatusUseCase,
		maxUploadBytes:    maxUploadBytes,
	}
}

type sendMessageRequest struct {
	Type         string `json:"type" validate:"omitempty,oneof=text emoji image file audio"`
	Content      string `json:"content"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// ListMessages returns the history oldest first and marks it read for the caller.
func (h *MessageHandler) ListMessages(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	msgs, err := h.messageUseCase.LoadHistory(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msgs)
}

// SendMessage accepts either a JSON body or a multipart form carrying the
// attachment under "file".
func (h *MessageHandler) SendMessage(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	input := usecase.SendMessageInput{ConversationID: c.Param("id")}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := h.readMultipart(c, &input); err != nil {
			return response.Error(c, err)
		}
	} else {
		var req sendMessageRequest
		if err := bindAndValidate(c, &req); err != nil {
			return response.Error(c, err)
		}
		input.Type = entity.MessageType(req.Type)
		input.Content = req.Content
		input.ThumbnailURL = req.ThumbnailURL
	}

	msg, err := h.messageUseCase.SendMessage(c.Request().Context(), uid, input)
	if input.File != nil {
		if closer, ok := input.File.Body.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *MessageHandler) readMultipart(c echo.Context, input *usecase.SendMessageInput) error {
	input.Type = entity.MessageType(c.FormValue("type"))
	input.Content = c.FormValue("content")
	input.ThumbnailURL = c.FormValue("thumbnail_url")

	header, err := c.FormFile("file")
	if err != nil {
		// A form without a file is a plain text or emoji message.
		return nil
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return errors.InvalidContent("Attachment exceeds the maximum upload size")
	}

	var duration float64
	if raw := c.FormValue("duration"); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.BadRequest("duration must be a number of seconds", err)
		}
	}

	src, err := header.Open()
	if err != nil {
		return errors.BadRequest("Failed to read attachment", err)
	}

	input.File = &entity.AttachmentFile{
		Name:        header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Duration:    duration,
		Body:        src,
	}
	return nil
}

func (h *MessageHandler) EditMessage(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req editMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.EditMessage(c.Request().Context(), uid, c.Param("id"), c.Param("messageId"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msg)
}

func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.messageUseCase.DeleteMessage(c.Request().Context(), uid, c.Param("id"), c.Param("messageId")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Message deleted successfully",
	})
}

func (h *MessageHandler) MarkMessageRead(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	status, err := h.readStatusUseCase.MarkRead(c.Request().Context(), uid, c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, status)
}

func (h *MessageHandler) ListStatuses(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	statuses, err := h.readStatusUseCase.ListStatuses(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, statuses)
}

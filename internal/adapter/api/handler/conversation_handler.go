package handler

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/usecase"
	"directchat/pkg/response"
	"directchat/pkg/utils"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
	readStatusUseCase   *usecase.ReadStatusUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase, readStatusUseCase *usecase.ReadStatusUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		readStatusUseCase:   readStatusUseCase,
	}
}

type createConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	summaries, err := h.conversationUseCase.ListConversations(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c, 50)
	start, end := pagination.Window(len(summaries))
	return response.Paginated(c, summaries[start:end], int64(len(summaries)), pagination.Page, pagination.PageSize)
}

// CreateConversation returns the existing direct conversation with the
// recipient, or creates one.
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	conv, created, err := h.conversationUseCase.GetOrCreateConversation(c.Request().Context(), uid, req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}
	if created {
		return response.Created(c, conv)
	}
	return response.Success(c, conv)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	summary, err := h.conversationUseCase.GetSummary(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, summary)
}

func (h *ConversationHandler) MarkConversationRead(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.readStatusUseCase.MarkConversationRead(c.Request().Context(), uid, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"conversation_id": c.Param("id"),
		"unread_count":    0,
	})
}

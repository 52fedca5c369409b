package handler

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/usecase"
	"directchat/pkg/errors"
)

var (
	conversationHandler *ConversationHandler
	messageHandler      *MessageHandler
	profileHandler      *ProfileHandler
	presenceHandler     *PresenceHandler
)

func Setup(
	conversationUseCase *usecase.ConversationUseCase,
	messageUseCase *usecase.MessageUseCase,
	readStatusUseCase *usecase.ReadStatusUseCase,
	profileUseCase *usecase.ProfileUseCase,
	presenceUseCase *usecase.PresenceUseCase,
	maxUploadBytes int64,
) {
	conversationHandler = NewConversationHandler(conversationUseCase, readStatusUseCase)
	messageHandler = NewMessageHandler(messageUseCase, readStatusUseCase, maxUploadBytes)
	profileHandler = NewProfileHandler(profileUseCase)
	presenceHandler = NewPresenceHandler(presenceUseCase)
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}

func GetProfileHandler() *ProfileHandler {
	return profileHandler
}

func GetPresenceHandler() *PresenceHandler {
	return presenceHandler
}

func currentUser(c echo.Context) (string, error) {
	uid, ok := c.Get("uid").(string)
	if !ok || uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	return uid, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.BadRequest("Invalid request body", err)
	}
	return c.Validate(req)
}

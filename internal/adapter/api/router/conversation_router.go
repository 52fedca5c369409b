package router

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/adapter/api/handler"
	"directchat/internal/adapter/api/middleware"
)

func SetupConversationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	conversationHandler := handler.GetConversationHandler()
	messageHandler := handler.GetMessageHandler()

	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.GET("", conversationHandler.ListConversations)
	conversations.POST("", conversationHandler.CreateConversation)
	conversations.GET("/:id", conversationHandler.GetConversation)
	conversations.PUT("/:id/read", conversationHandler.MarkConversationRead)

	conversations.GET("/:id/messages", messageHandler.ListMessages)
	conversations.POST("/:id/messages", messageHandler.SendMessage)
	conversations.PUT("/:id/messages/:messageId", messageHandler.EditMessage)
	conversations.DELETE("/:id/messages/:messageId", messageHandler.DeleteMessage)
	conversations.PUT("/:id/messages/:messageId/read", messageHandler.MarkMessageRead)
	conversations.GET("/:id/statuses", messageHandler.ListStatuses)
}

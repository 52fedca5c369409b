package router

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/adapter/api/handler"
	"directchat/internal/adapter/api/middleware"
	"directchat/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, wsHandler *handler.WebSocketHandler, rl *ratelimit.RateLimiter) {
	SetupConversationRouter(e, authMiddleware)
	SetupProfileRouter(e, authMiddleware)
	SetupPresenceRouter(e, authMiddleware)
	SetupWebSocketRouter(e, wsHandler, authMiddleware, rl)
	SetupHealthRouter(e)
}

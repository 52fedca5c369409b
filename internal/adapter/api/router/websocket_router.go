package router

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/adapter/api/handler"
	"directchat/internal/adapter/api/middleware"
	"directchat/internal/infrastructure/ratelimit"
)

// SetupWebSocketRouter mounts /ws. The token comes from the query string since
// browsers cannot send headers on the upgrade request.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware, rl *ratelimit.RateLimiter) {
	e.GET("/ws", wsHandler.HandleWebSocket,
		middleware.RateLimit(rl, ratelimit.ActionConnect),
		authMiddleware.Authenticate,
	)
}

package router

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/adapter/api/handler"
	"directchat/internal/adapter/api/middleware"
)

func SetupPresenceRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	presenceHandler := handler.GetPresenceHandler()

	presence := e.Group("/v1/presence")
	presence.Use(authMiddleware.Authenticate)

	presence.POST("/heartbeat", presenceHandler.Heartbeat)
	presence.GET("/online", presenceHandler.ListOnline)
}

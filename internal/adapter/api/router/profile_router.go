package router

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/adapter/api/handler"
	"directchat/internal/adapter/api/middleware"
)

func SetupProfileRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	profileHandler := handler.GetProfileHandler()

	profiles := e.Group("/v1/profiles")
	profiles.Use(authMiddleware.Authenticate)

	profiles.GET("/me", profileHandler.GetMe)
	profiles.PUT("/me", profileHandler.SaveMe)
	profiles.GET("/search", profileHandler.Search)
}

package router

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/adapter/api/handler"
	"directchat/internal/infrastructure/metrics"
)

func SetupHealthRouter(e *echo.Echo) {
	healthHandler := handler.GetHealthHandler()
	e.GET("/health", healthHandler.CheckHealth)
	e.GET("/metrics", metrics.Handler())
}

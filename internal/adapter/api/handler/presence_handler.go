package handler

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/usecase"
	"directchat/pkg/response"
)

type PresenceHandler struct {
	presenceUseCase *usecase.PresenceUseCase
}

func NewPresenceHandler(presenceUseCase *usecase.PresenceUseCase) *PresenceHandler {
	return &PresenceHandler{
		presenceUseCase: presenceUseCase,
	}
}

// Heartbeat records the caller as seen now. Clients without a websocket call
// it on the heartbeat interval.
func (h *PresenceHandler) Heartbeat(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.presenceUseCase.Touch(c.Request().Context(), uid); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"status": "ok",
	})
}

func (h *PresenceHandler) ListOnline(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, h.presenceUseCase.ListOnline(c.Request().Context(), uid))
}

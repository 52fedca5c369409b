package handler

import (
	"github.com/labstack/echo/v4"

	"directchat/internal/usecase"
	"directchat/pkg/response"
	"directchat/pkg/utils"
)

type ProfileHandler struct {
	profileUseCase *usecase.ProfileUseCase
}

func NewProfileHandler(profileUseCase *usecase.ProfileUseCase) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: profileUseCase,
	}
}

type saveProfileRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
}

func (h *ProfileHandler) GetMe(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	profile, err := h.profileUseCase.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, profile)
}

func (h *ProfileHandler) SaveMe(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req saveProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	profile, err := h.profileUseCase.SaveProfile(c.Request().Context(), uid, req.Username)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, profile)
}

// Search never fails; an unusable query returns an empty list.
func (h *ProfileHandler) Search(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c, 0)
	profiles := h.profileUseCase.Search(c.Request().Context(), uid, c.QueryParam("q"), pagination.PageSize)
	return response.Success(c, profiles)
}

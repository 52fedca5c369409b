package api

import (
	"github.com/labstack/echo/v4"

	"directchat/pkg/logger"
	"directchat/pkg/response"
)

// HTTPErrorHandler renders errors returned by middleware and handlers in the
// standard response envelope.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if rerr := response.Error(c, err); rerr != nil {
		logger.Error("Failed to write error response: %v", rerr)
	}
}

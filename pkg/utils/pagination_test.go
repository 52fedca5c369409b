package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=10", nil)
	p := GetPaginationParams(e.NewContext(req, httptest.NewRecorder()), 25)
	assert.Equal(t, PaginationParams{Page: 3, PageSize: 10, Offset: 20}, p)

	req = httptest.NewRequest(http.MethodGet, "/?page=-1&limit=1000", nil)
	p = GetPaginationParams(e.NewContext(req, httptest.NewRecorder()), 25)
	assert.Equal(t, PaginationParams{Page: 1, PageSize: 25, Offset: 0}, p)
}

func TestWindow(t *testing.T) {
	p := PaginationParams{Page: 2, PageSize: 10, Offset: 10}

	start, end := p.Window(15)
	assert.Equal(t, 10, start)
	assert.Equal(t, 15, end)

	start, end = p.Window(5)
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directchat/internal/adapter/api"
	"directchat/internal/infrastructure/firebase"
	"directchat/internal/infrastructure/ratelimit"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = api.HTTPErrorHandler
	return e
}

func whoAmI(c echo.Context) error {
	return c.String(http.StatusOK, c.Get("uid").(string))
}

func TestAuthenticate(t *testing.T) {
	e := newServer()
	auth := NewAuthMiddleware(firebase.DevTokenVerifier{})
	e.GET("/me", whoAmI, auth.Authenticate)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{name: "bearer header", header: "Bearer " + firebase.DevToken("alice"), wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "query token", query: "?token=" + firebase.DevToken("bob"), wantStatus: http.StatusOK, wantBody: "bob"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	e := newServer()
	rl := ratelimit.NewRateLimiter(map[string]ratelimit.Limit{
		ratelimit.ActionConnect: {PerMinute: 1, Burst: 2},
	})
	e.GET("/ws", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RateLimit(rl, ratelimit.ActionConnect))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do().Code)
	assert.Equal(t, http.StatusNoContent, do().Code)

	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directchat/internal/adapter/api"
	"directchat/internal/adapter/repository/memstore"
	"directchat/internal/domain/entity"
	"directchat/internal/infrastructure/events"
	"directchat/internal/infrastructure/ratelimit"
	ws "directchat/internal/infrastructure/websocket"
	"directchat/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testAPI struct {
	e     *echo.Echo
	store *memstore.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memstore.New()
	t.Cleanup(func() { store.Close() })

	manager := ws.NewManager()
	limiter := ratelimit.NewRateLimiter(nil)
	publisher := events.NoopPublisher{}
	blobs := memstore.NewBlobStore("http://blobs.test")

	attachments := usecase.NewAttachmentUseCase(blobs, 1<<20)
	reads := usecase.NewReadStatusUseCase(store.Statuses(), store.Participants(), store.Messages(), manager)
	conversations := usecase.NewConversationUseCase(store.Conversations(), store.Participants(), store.Profiles(), manager, publisher, limiter)
	messages := usecase.NewMessageUseCase(store.Messages(), store.Conversations(), store.Profiles(), attachments, reads, manager, publisher, limiter)
	profiles := usecase.NewProfileUseCase(store.Profiles(), 5)

	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.HTTPErrorHandler

	// X-User stands in for the auth middleware.
	asUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("X-User"); uid != "" {
				c.Set("uid", uid)
			}
			return next(c)
		}
	}

	ch := NewConversationHandler(conversations, reads)
	mh := NewMessageHandler(messages, reads, 1<<20)
	ph := NewProfileHandler(profiles)

	g := e.Group("/v1", asUser)
	g.GET("/conversations", ch.ListConversations)
	g.POST("/conversations", ch.CreateConversation)
	g.GET("/conversations/:id", ch.GetConversation)
	g.POST("/conversations/:id/messages", mh.SendMessage)
	g.GET("/conversations/:id/messages", mh.ListMessages)
	g.PUT("/profiles/me", ph.SaveMe)
	g.GET("/profiles/search", ph.Search)
	e.GET("/health", NewHealthHandler("memory").CheckHealth)

	for id, name := range map[string]string{"alice": "Alice", "bob": "Bob", "bobby": "Bobby"} {
		require.NoError(t, store.Profiles().Upsert(context.Background(), &entity.Profile{ID: id, Username: name}))
	}
	return &testAPI{e: e, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, user, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealthCheck(t *testing.T) {
	a := newTestAPI(t)

	rec, _ := a.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Server is running", body["status"])
	assert.Equal(t, "memory", body["backend"])
}

func TestConversationFlow(t *testing.T) {
	a := newTestAPI(t)

	rec, env := a.do(t, http.MethodPost, "/v1/conversations", "alice", `{"recipient_id":"bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var conv entity.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	assert.ElementsMatch(t, []string{"alice", "bob"}, conv.ParticipantIDs)

	rec, env = a.do(t, http.MethodPost, "/v1/conversations", "bob", `{"recipient_id":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var again entity.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, conv.ID, again.ID)

	rec, _ = a.do(t, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", "alice", `{"type":"text","content":"hello bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = a.do(t, http.MethodGet, "/v1/conversations", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []entity.ConversationSummary `json:"items"`
		Total int64                        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "hello bob", page.Items[0].LastMessage)
	assert.Equal(t, "Alice", page.Items[0].Counterpart.Username)
	assert.Equal(t, 1, page.Items[0].UnreadCount)

	rec, env = a.do(t, http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []entity.Message
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "hello bob", history[0].Content)

	rec, env = a.do(t, http.MethodGet, "/v1/conversations/"+conv.ID, "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary entity.ConversationSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 0, summary.UnreadCount)
}

func TestConversationErrors(t *testing.T) {
	a := newTestAPI(t)

	rec, env := a.do(t, http.MethodPost, "/v1/conversations", "alice", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = a.do(t, http.MethodPost, "/v1/conversations", "alice", `{"recipient_id":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = a.do(t, http.MethodGet, "/v1/conversations", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = a.do(t, http.MethodPost, "/v1/conversations", "alice", `{"recipient_id":"bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, env = a.do(t, http.MethodGet, "/v1/conversations", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []entity.ConversationSummary `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)

	rec, _ = a.do(t, http.MethodGet, "/v1/conversations/"+page.Items[0].ConversationID, "bobby", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProfileSearch(t *testing.T) {
	a := newTestAPI(t)

	rec, _ := a.do(t, http.MethodPut, "/v1/profiles/me", "carol", `{"username":"Carol"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := a.do(t, http.MethodGet, "/v1/profiles/search?q=BOB", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found []entity.Profile
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found, 2)
	assert.Equal(t, "Bob", found[0].Username)
	assert.Equal(t, "Bobby", found[1].Username)

	rec, env = a.do(t, http.MethodGet, "/v1/profiles/search", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/service"
	"github.com/capitalize-ai/chat-platform/internal/storage"
	"github.com/capitalize-ai/chat-platform/internal/store"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

const testSecret = "handler-test-secret"

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, transcript []*model.Message) string {
	return "echo: " + transcript[len(transcript)-1].Content
}

type testServer struct {
	handler http.Handler
	convs   *service.ConversationService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(context.Background(), db, storage.DriverSQLite))

	log := logger.NewNop()
	conversations := store.NewConversationStore(db, nil)
	messages := store.NewMessageStore(db, conversations, nil)
	accounts := store.NewAccountStore(db, nil)

	convSvc := service.NewConversationService(conversations, messages, nil, service.ConversationConfig{}, log)
	return &testServer{
		convs: convSvc,
		handler: NewRouter(RouterConfig{
			JWTSecret:     testSecret,
			CORSOrigins:   []string{"*"},
			Chat:          service.NewChatService(conversations, messages, echoCompleter{}, nil, nil, log),
			Conversations: convSvc,
			Accounts:      service.NewAccountService(accounts, conversations, nil, log),
			Health: NewHealthHandler(map[string]Check{
				"database": db.PingContext,
			}),
			Logger: log,
		}),
	}
}

func token(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestUnauthorized(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Unauthorized", body["message"])
}

func TestWrongMethod(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/v1/chat", "alice", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Unauthorized", body["message"])

	rec, body = s.do(t, http.MethodPut, "/api/v1/conversations/history", "alice", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Unauthorized", body["message"])
}

func TestChatEmptyMessage(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/chat", "alice", map[string]string{"message": "   "})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Message cannot be empty", body["message"])
}

func TestChatInvalidBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatUnknownConversation(t *testing.T) {
	s := newTestServer(t)

	for _, id := range []string{"not-a-uuid", "0190c8a4-7c3e-7b8a-9f3e-2d1c0b4a5e6f"} {
		rec, body := s.do(t, http.MethodPost, "/api/v1/chat", "alice", map[string]string{
			"message":         "hi",
			"conversation_id": id,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Conversation not found", body["message"])
	}
}

func TestChatFlow(t *testing.T) {
	s := newTestServer(t)

	// First authenticated call provisions the account and its conversation.
	rec, body := s.do(t, http.MethodGet, "/api/v1/conversations/history", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	history := body["history"].(map[string]any)
	today := history["today"].([]any)
	require.Len(t, today, 1)
	initial := today[0].(map[string]any)
	assert.Equal(t, "New Conversation", initial["title"])
	assert.Equal(t, "Empty conversation", initial["preview"])
	for _, key := range []string{"yesterday", "last_7_days", "older"} {
		assert.Empty(t, history[key])
	}

	convID := initial["id"].(string)
	question := "Hello, how do I reset my password?"
	rec, body = s.do(t, http.MethodPost, "/api/v1/chat", "alice", map[string]string{
		"message":         question,
		"conversation_id": convID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, question, body["user_message"])
	assert.Equal(t, "echo: "+question, body["ai_response"])
	assert.Equal(t, convID, body["conversation_id"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/conversations/"+convID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, convID, body["id"])
	assert.Equal(t, question, body["title"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	_, err := time.Parse(time.RFC3339Nano, first["timestamp"].(string))
	assert.NoError(t, err)

	rec, body = s.do(t, http.MethodGet, "/api/v1/messages?conversation_id="+convID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["messages"], 2)

	rec, body = s.do(t, http.MethodGet, "/api/v1/messages", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, convID, body["conversation_id"])

	// Other principals cannot see it.
	rec, body = s.do(t, http.MethodGet, "/api/v1/conversations/"+convID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Conversation not found", body["message"])

	rec, body = s.do(t, http.MethodDelete, "/api/v1/conversations/"+convID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "success"}, body)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/conversations/"+convID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/conversations/"+convID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatWithoutConversationCreatesOne(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/chat", "alice", map[string]string{"message": "fresh start"})
	require.Equal(t, http.StatusOK, rec.Code)
	newID := body["conversation_id"].(string)

	history, err := s.convs.History(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, history.Today, 2)
	assert.Equal(t, newID, history.Today[0].ID)
	assert.Equal(t, "fresh start", history.Today[0].Title)
}

func TestCreateConversation(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/conversations", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", body["status"])
	conv := body["conversation"].(map[string]any)
	assert.Equal(t, "New Conversation", conv["title"])
	assert.Equal(t, "Empty conversation", conv["preview"])
	assert.EqualValues(t, 0, conv["message_count"])
	assert.NotEmpty(t, conv["time_display"])
	assert.NotEmpty(t, conv["last_updated"])
}

func TestDeleteAccount(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/chat", "alice", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodDelete, "/api/v1/account", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])

	history, err := s.convs.History(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, history.Today)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	rec, body = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyFailingCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"nats": func(context.Context) error { return errors.New("down") },
	})
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "nats unavailable")
}

type failingConversations struct {
	ConversationService
}

func (failingConversations) History(context.Context, string) (*model.History, error) {
	return nil, errors.New("disk on fire")
}

type okAccounts struct{}

func (okAccounts) Provision(context.Context, string) error { return nil }
func (okAccounts) Delete(context.Context, string) error    { return nil }

func TestStorageFailureIsGeneric(t *testing.T) {
	router := NewRouter(RouterConfig{
		JWTSecret:     testSecret,
		Conversations: failingConversations{},
		Accounts:      okAccounts{},
		Logger:        logger.NewNop(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/history", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Internal server error"}`, rec.Body.String())
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"meishi-bot/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(router http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	f := newHandlerFixture("xoxb")
	w := get(f.router, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestConversationStatusRequiresToken(t *testing.T) {
	f := newHandlerFixture("xoxb")

	tests := []struct {
		name string
		auth string
		code int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic api-token", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer api-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(f.router, "/api/conversations/C1", tt.auth)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestConversationStatusBody(t *testing.T) {
	f := newHandlerFixture("xoxb")
	f.queue.status = services.QueueStatus{Pending: 2, Processing: true, Awaiting: true, Processed: 1, Total: 4}

	w := get(f.router, "/api/conversations/C1", "Bearer api-token")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ConversationID string               `json:"conversationId"`
		Queue          services.QueueStatus `json:"queue"`
		Record         map[string]string    `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "C1", body.ConversationID)
	assert.Equal(t, f.queue.status, body.Queue)
	assert.Equal(t, "ACME", body.Record["company"])
}

func TestAPIDisabledWithoutToken(t *testing.T) {
	slack := NewSlackHandler(&fakeQueue{}, &fakeController{}, &fakeMessenger{}, "xoxb", 0)
	router := NewRouter(slack, NewStatusHandler(&fakeQueue{}, fakeRecords{}), "")
	w := get(router, "/api/conversations/C1", "Bearer ")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

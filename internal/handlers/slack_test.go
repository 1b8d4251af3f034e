package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"meishi-bot/internal/models"
	"meishi-bot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type enqueueCall struct {
	conv       string
	refs       []models.AttachmentRef
	credential string
}

type fakeQueue struct {
	mu     sync.Mutex
	calls  []enqueueCall
	status services.QueueStatus
}

func (f *fakeQueue) Enqueue(_ context.Context, conv string, refs []models.AttachmentRef, credential string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, enqueueCall{conv: conv, refs: refs, credential: credential})
}

func (f *fakeQueue) Status(string) services.QueueStatus {
	return f.status
}

type fakeController struct {
	mu      sync.Mutex
	actions []models.UserAction
}

func (f *fakeController) Handle(_ context.Context, a models.UserAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return nil
}

type fakeMessenger struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeMessenger) Post(_ context.Context, _ string, msg models.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, msg.Text)
	return nil
}

type fakeRecords struct{}

func (fakeRecords) Snapshot(string) models.ScanRecord {
	r := models.NewScanRecord()
	r[models.FieldCompany] = "ACME"
	return r
}

type handlerFixture struct {
	router     *gin.Engine
	queue      *fakeQueue
	controller *fakeController
	messenger  *fakeMessenger
}

func newHandlerFixture(botToken string) *handlerFixture {
	f := &handlerFixture{
		queue:      &fakeQueue{},
		controller: &fakeController{},
		messenger:  &fakeMessenger{},
	}
	slack := NewSlackHandler(f.queue, f.controller, f.messenger, botToken, time.Minute)
	slack.run = func(fn func()) { fn() }
	f.router = NewRouter(slack, NewStatusHandler(f.queue, fakeRecords{}), "api-token")
	return f
}

func postJSON(router http.Handler, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const fileEvent = `{
  "type": "event_callback",
  "event_id": "Ev1",
  "event": {
    "type": "message",
    "channel": "C1",
    "user": "U1",
    "files": [
      {"id": "F1", "name": "card.jpg", "mimetype": "image/jpeg", "filetype": "jpg",
       "url_private": "https://files.slack.com/F1", "url_private_download": "https://files.slack.com/F1/download"},
      {"id": "F2", "name": "doc.pdf", "filetype": "pdf", "url_private": "https://files.slack.com/F2"}
    ]
  }
}`

func TestEventsURLVerification(t *testing.T) {
	f := newHandlerFixture("xoxb")
	w := postJSON(f.router, "/slack/events", `{"type":"url_verification","challenge":"abc123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc123", body["challenge"])
}

func TestEventsEnqueuesFiles(t *testing.T) {
	f := newHandlerFixture("xoxb-1")
	w := postJSON(f.router, "/slack/events", fileEvent)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, f.queue.calls, 1)
	call := f.queue.calls[0]
	assert.Equal(t, "C1", call.conv)
	assert.Equal(t, "xoxb-1", call.credential)
	require.Len(t, call.refs, 2)
	assert.Equal(t, "https://files.slack.com/F1/download", call.refs[0].URL)
	assert.Equal(t, "https://files.slack.com/F2", call.refs[1].URL)
	assert.Equal(t, []string{services.MsgReading}, f.messenger.texts)
}

func TestEventsDeduplicatesRetries(t *testing.T) {
	f := newHandlerFixture("xoxb-1")
	postJSON(f.router, "/slack/events", fileEvent)
	w := postJSON(f.router, "/slack/events", fileEvent, "X-Slack-Retry-Num", "1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.queue.calls, 1)
}

func TestEventsIgnoresBotsAndPlainMessages(t *testing.T) {
	f := newHandlerFixture("xoxb-1")

	bot := `{"type":"event_callback","event_id":"Ev2","event":{"type":"message","channel":"C1","bot_id":"B1","files":[{"id":"F1","name":"a.jpg"}]}}`
	plain := `{"type":"event_callback","event_id":"Ev3","event":{"type":"message","channel":"C1","text":"hello"}}`
	other := `{"type":"event_callback","event_id":"Ev4","event":{"type":"reaction_added"}}`

	for _, body := range []string{bot, plain, other} {
		w := postJSON(f.router, "/slack/events", body)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Empty(t, f.queue.calls)
	assert.Empty(t, f.messenger.texts)
}

func TestEventsMissingBotToken(t *testing.T) {
	f := newHandlerFixture("")
	w := postJSON(f.router, "/slack/events", fileEvent)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.queue.calls)
	assert.Equal(t, []string{services.MsgReading, services.MsgMissingBotToken}, f.messenger.texts)
}

func TestEventsIgnoresFilesWithoutURL(t *testing.T) {
	f := newHandlerFixture("xoxb-1")
	body := `{"type":"event_callback","event_id":"Ev5","event":{"type":"message","channel":"C1","files":[{"id":"F1","name":"a.jpg"}]}}`

	w := postJSON(f.router, "/slack/events", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.queue.calls)
	assert.Empty(t, f.messenger.texts)
}

func TestEventsRejectsInvalidBody(t *testing.T) {
	f := newHandlerFixture("xoxb")
	w := postJSON(f.router, "/slack/events", `{"event":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func postAction(router http.Handler, payload string) *httptest.ResponseRecorder {
	form := url.Values{}
	if payload != "" {
		form.Set("payload", payload)
	}
	req := httptest.NewRequest(http.MethodPost, "/slack/actions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestActionsDispatchesToController(t *testing.T) {
	f := newHandlerFixture("xoxb")
	payload := `{
	  "type": "block_actions",
	  "user": {"id": "U1", "username": "alice.s", "name": "alice"},
	  "channel": {"id": "C1"},
	  "actions": [{"action_id": "save_changes", "block_id": "b", "value": "3"}],
	  "state": {"values": {
	    "edit_name_jp": {"name_jp": {"type": "plain_text_input", "value": "山田"}},
	    "edit_phone": {"phone": {"type": "plain_text_input", "value": null}}
	  }}
	}`

	w := postAction(f.router, payload)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, f.controller.actions, 1)
	a := f.controller.actions[0]
	assert.Equal(t, "C1", a.ConversationID)
	assert.Equal(t, services.ActionSaveChanges, a.ActionID)
	assert.Equal(t, 3, a.Scan)
	assert.Equal(t, models.Identity{ID: "U1", DisplayName: "alice"}, a.Actor)
	assert.Equal(t, map[string]string{"name_jp": "山田", "phone": ""}, a.FormValues)
}

func TestActionsConfirmIgnoresState(t *testing.T) {
	f := newHandlerFixture("xoxb")
	payload := `{"type":"block_actions","user":{"id":"U1","username":"bob"},"channel":{"id":"C9"},"actions":[{"action_id":"save_text"}]}`
	postAction(f.router, payload)

	require.Len(t, f.controller.actions, 1)
	assert.Nil(t, f.controller.actions[0].FormValues)
	assert.Equal(t, "bob", f.controller.actions[0].Actor.DisplayName)
	assert.Equal(t, 0, f.controller.actions[0].Scan, "button without a scan number")
}

func TestActionsRejectsIncompletePayload(t *testing.T) {
	f := newHandlerFixture("xoxb")

	tests := []struct {
		name    string
		payload string
	}{
		{"missing channel", `{"type":"block_actions","user":{"id":"U1"},"actions":[{"action_id":"save_text","value":"1"}]}`},
		{"missing user", `{"type":"block_actions","channel":{"id":"C1"},"actions":[{"action_id":"save_text","value":"1"}]}`},
		{"missing action id", `{"type":"block_actions","user":{"id":"U1"},"channel":{"id":"C1"},"actions":[{"value":"1"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, postAction(f.router, tt.payload).Code)
		})
	}
	assert.Empty(t, f.controller.actions)
}

func TestActionsBadPayload(t *testing.T) {
	f := newHandlerFixture("xoxb")
	assert.Equal(t, http.StatusBadRequest, postAction(f.router, "").Code)
	assert.Equal(t, http.StatusBadRequest, postAction(f.router, "{not json").Code)
	assert.Empty(t, f.controller.actions)
}

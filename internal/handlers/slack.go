package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"
	"meishi-bot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, conv string, attachments []models.AttachmentRef, credential string)
}

type ActionHandler interface {
	Handle(ctx context.Context, action models.UserAction) error
}

// SlackHandler recebe o Events API e os cliques em botões.
// Responde 200 na hora e faz o trabalho em segundo plano.
type SlackHandler struct {
	queue      Enqueuer
	controller ActionHandler
	messenger  services.Messenger
	botToken   string
	seen       *cache.Cache
	run        func(func())
}

func NewSlackHandler(queue Enqueuer, controller ActionHandler, messenger services.Messenger, botToken string, dedupTTL time.Duration) *SlackHandler {
	if dedupTTL <= 0 {
		dedupTTL = 10 * time.Minute
	}
	return &SlackHandler{
		queue:      queue,
		controller: controller,
		messenger:  messenger,
		botToken:   botToken,
		seen:       cache.New(dedupTTL, 2*dedupTTL),
		run:        func(f func()) { go f() },
	}
}

func (h *SlackHandler) Events(c *gin.Context) {
	var envelope models.SlackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Validation error for /slack/events")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if envelope.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": envelope.Challenge})
		return
	}

	// Slack reenvia se não receber 200 em 3s; o event_id identifica a entrega
	if envelope.EventID != "" {
		if err := h.seen.Add(envelope.EventID, true, cache.DefaultExpiration); err != nil {
			logger.WithFields(logrus.Fields{
				"eventId":  envelope.EventID,
				"retryNum": c.GetHeader("X-Slack-Retry-Num"),
			}).Info("Ignoring duplicate Slack event")
			c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
			return
		}
	}

	event := envelope.Event
	if envelope.Type != "event_callback" || event == nil || event.Type != "message" {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if event.FromBot() {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if len(event.Files) == 0 {
		logger.WithFields(logrus.Fields{
			"conversationId": event.Channel,
			"text":           event.Text,
		}).Debug("Plain message received")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	batch := models.AttachmentBatch{
		ConversationID: event.Channel,
		Attachments:    make([]models.AttachmentRef, 0, len(event.Files)),
		Credential:     h.botToken,
	}
	for _, f := range event.Files {
		batch.Attachments = append(batch.Attachments, f.Ref())
	}
	if err := binding.Validator.ValidateStruct(&batch); err != nil {
		logger.WithFields(logrus.Fields{
			"conversationId": batch.ConversationID,
			"eventId":        envelope.EventID,
			"error":          err.Error(),
		}).Warn("Ignoring attachment event with invalid files")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	logger.WithFields(logrus.Fields{
		"conversationId": batch.ConversationID,
		"files":          len(batch.Attachments),
		"eventId":        envelope.EventID,
	}).Info("Received attachments")

	ctx := context.WithoutCancel(c.Request.Context())
	h.run(func() {
		h.post(ctx, batch.ConversationID, services.TextMessage(services.MsgReading))
		if batch.Credential == "" {
			logger.WithFields(logrus.Fields{
				"conversationId": batch.ConversationID,
			}).Error("Bot token not configured")
			h.post(ctx, batch.ConversationID, services.TextMessage(services.MsgMissingBotToken))
			return
		}
		h.queue.Enqueue(ctx, batch.ConversationID, batch.Attachments, batch.Credential)
	})

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SlackHandler) Actions(c *gin.Context) {
	raw := c.PostForm("payload")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
		return
	}

	var payload models.SlackInteraction
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Invalid interaction payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid payload",
			"details": err.Error(),
		})
		return
	}

	if payload.Type != "block_actions" || len(payload.Actions) == 0 {
		c.Status(http.StatusOK)
		return
	}

	clicked := payload.Actions[0]
	action := models.UserAction{
		ConversationID: payload.Channel.ID,
		ActionID:       clicked.ActionID,
		Actor: models.Identity{
			ID:          payload.User.ID,
			DisplayName: firstNonEmpty(payload.User.Name, payload.User.Username),
		},
	}
	// Botões sem número de leitura ficam com 0 e são descartados como antigos
	if scan, err := strconv.Atoi(clicked.Value); err == nil {
		action.Scan = scan
	}
	if action.ActionID == services.ActionSaveChanges {
		action.FormValues = payload.State.FormValues()
	}
	if err := binding.Validator.ValidateStruct(&action); err != nil {
		logger.WithFields(logrus.Fields{
			"actionId": action.ActionID,
			"error":    err.Error(),
		}).Error("Invalid interaction payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid payload",
			"details": err.Error(),
		})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	h.run(func() {
		if err := h.controller.Handle(ctx, action); err != nil {
			// Botões de link também geram block_actions
			logger.WithFields(logrus.Fields{
				"actionId": action.ActionID,
				"error":    err.Error(),
			}).Debug("Action not handled")
		}
	})

	c.Status(http.StatusOK)
}

func (h *SlackHandler) post(ctx context.Context, conv string, msg models.OutboundMessage) {
	if err := h.messenger.Post(ctx, conv, msg); err != nil {
		logger.WithFields(logrus.Fields{
			"conversationId": conv,
			"error":          err.Error(),
		}).Error("Failed to post message")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

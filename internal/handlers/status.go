package handlers

import (
	"net/http"

	"meishi-bot/internal/models"
	"meishi-bot/internal/services"

	"github.com/gin-gonic/gin"
)

type StatusSource interface {
	Status(conv string) services.QueueStatus
}

type RecordSource interface {
	Snapshot(conv string) models.ScanRecord
}

type StatusHandler struct {
	queue StatusSource
	store RecordSource
}

func NewStatusHandler(queue StatusSource, store RecordSource) *StatusHandler {
	return &StatusHandler{queue: queue, store: store}
}

// Conversation devolve os contadores da fila e o registro atual da conversa.
func (h *StatusHandler) Conversation(c *gin.Context) {
	conv := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"conversationId": conv,
		"queue":          h.queue.Status(conv),
		"record":         h.store.Snapshot(conv),
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

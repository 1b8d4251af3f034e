package services

import (
	"context"
	"fmt"
	"time"

	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Messenger publica mensagens numa conversa.
type Messenger interface {
	Post(ctx context.Context, conv string, msg models.OutboundMessage) error
}

// SlackMessenger posta via chat.postMessage com o token do bot.
type SlackMessenger struct {
	client *resty.Client
}

func NewSlackMessenger(apiURL, botToken string) *SlackMessenger {
	client := resty.New().
		SetBaseURL(apiURL).
		SetAuthToken(botToken).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetTimeout(10 * time.Second)

	return &SlackMessenger{client: client}
}

func (m *SlackMessenger) Post(ctx context.Context, conv string, msg models.OutboundMessage) error {
	var result models.SlackAPIResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(models.PostMessageRequest{Channel: conv, Text: msg.Text, Blocks: msg.Blocks}).
		SetResult(&result).
		Post("/chat.postMessage")
	if err != nil {
		return fmt.Errorf("slack chat.postMessage request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack chat.postMessage error: status %s, body: %s", resp.Status(), resp.String())
	}
	// Slack responde 200 mesmo em erro; o campo "ok" é o que vale
	if !result.OK {
		return fmt.Errorf("slack chat.postMessage error: %s", result.Error)
	}
	return nil
}

// notify posta e só registra a falha: mensagens são fire-and-forget.
func notify(ctx context.Context, m Messenger, conv string, msg models.OutboundMessage) {
	if err := m.Post(ctx, conv, msg); err != nil {
		logger.WithFields(logrus.Fields{
			"conversationId": conv,
			"error":          err.Error(),
		}).Error("Failed to post message")
	}
}

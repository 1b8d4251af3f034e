package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// RabbitLedger publica cada cartão confirmado como JSON numa fila durável.
type RabbitLedger struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel amqpChannel
	queue   string
}

func NewRabbitLedger(url, queue string) (*RabbitLedger, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open RabbitMQ channel: %w", err)
	}

	l, err := newRabbitLedger(ch, queue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	l.conn = conn

	logger.WithFields(logrus.Fields{
		"queue": queue,
	}).Info("RabbitMQ connection established")
	return l, nil
}

func newRabbitLedger(ch amqpChannel, queue string) (*RabbitLedger, error) {
	// Declaração idempotente
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("could not declare RabbitMQ queue %s: %w", queue, err)
	}
	return &RabbitLedger{channel: ch, queue: queue}, nil
}

func (l *RabbitLedger) Append(ctx context.Context, row models.LedgerRow) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode ledger row: %w", err)
	}

	// Channel não é seguro para publicações concorrentes
	l.mu.Lock()
	defer l.mu.Unlock()

	err = l.channel.PublishWithContext(ctx, "", l.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    row.ID,
		Timestamp:    row.Timestamp,
		Type:         "card.confirmed",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("could not publish to RabbitMQ: %w", err)
	}
	return nil
}

func (l *RabbitLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.channel.Close()
	if l.conn != nil {
		if cerr := l.conn.Close(); cerr != nil {
			return cerr
		}
	}
	return err
}

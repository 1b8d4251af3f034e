package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ScanQueue é a parte da fila usada pelos botões.
type ScanQueue interface {
	Awaiting(conv string) (scan int, ok bool)
	Advance(ctx context.Context, conv string)
}

// InteractionController trata os botões salvar/editar/salvar alterações.
// Ações da mesma conversa rodam uma de cada vez.
type InteractionController struct {
	store     *ScanStore
	ledger    Ledger
	messenger Messenger
	queue     ScanQueue
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewInteractionController(store *ScanStore, ledger Ledger, messenger Messenger, queue ScanQueue) *InteractionController {
	return &InteractionController{
		store:     store,
		ledger:    ledger,
		messenger: messenger,
		queue:     queue,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Handle despacha a ação pelo action_id.
func (c *InteractionController) Handle(ctx context.Context, action models.UserAction) error {
	switch action.ActionID {
	case ActionSaveText:
		return c.Confirm(ctx, action.ConversationID, action.Scan, action.Actor)
	case ActionEditText:
		return c.RequestEdit(ctx, action.ConversationID, action.Scan)
	case ActionSaveChanges:
		return c.ApplyEdit(ctx, action.ConversationID, action.Scan, action.Actor, action.FormValues)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidation, action.ActionID)
	}
}

func (c *InteractionController) lock(conv string) func() {
	c.mu.Lock()
	l, ok := c.locks[conv]
	if !ok {
		l = &sync.Mutex{}
		c.locks[conv] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// current confere se scan é a leitura que a fila está aguardando.
// Deve ser chamado com o lock da conversa.
func (c *InteractionController) current(conv string, scan int) error {
	awaiting, ok := c.queue.Awaiting(conv)
	if !ok || awaiting != scan {
		logger.WithFields(logrus.Fields{
			"conversationId": conv,
			"scan":           scan,
			"awaiting":       awaiting,
		}).Warn("Ignoring action for a scan that is no longer awaiting review")
		return fmt.Errorf("%w: scan %d", ErrStaleAction, scan)
	}
	return nil
}

// Confirm grava o registro atual, manda os links de e-mail, limpa e avança a fila.
func (c *InteractionController) Confirm(ctx context.Context, conv string, scan int, actor models.Identity) error {
	unlock := c.lock(conv)
	defer unlock()

	if err := c.current(conv, scan); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"conversationId": conv,
		"scan":           scan,
		"actor":          actor.ID,
	}).Info("Scan confirmed")

	c.finish(ctx, conv, actor)
	return nil
}

// RequestEdit mostra o formulário preenchido. Não altera estado.
func (c *InteractionController) RequestEdit(ctx context.Context, conv string, scan int) error {
	unlock := c.lock(conv)
	defer unlock()

	if err := c.current(conv, scan); err != nil {
		return err
	}
	notify(ctx, c.messenger, conv, EditFormMessage(c.store.Snapshot(conv), scan))
	return nil
}

// ApplyEdit aplica os valores do formulário e segue o mesmo fluxo do Confirm.
func (c *InteractionController) ApplyEdit(ctx context.Context, conv string, scan int, actor models.Identity, values map[string]string) error {
	unlock := c.lock(conv)
	defer unlock()

	if err := c.current(conv, scan); err != nil {
		return err
	}

	log := logger.WithFields(logrus.Fields{
		"conversationId": conv,
		"scan":           scan,
		"actor":          actor.ID,
	})

	if len(values) == 0 {
		log.Warn("Edit submitted without form values")
		notify(ctx, c.messenger, conv, TextMessage(MsgNoFormData))
		return nil
	}

	changes := map[string]string{}
	for key, value := range values {
		field := key
		if field == FormFieldName {
			field = models.FieldNameJP
		}
		if err := c.store.SetField(conv, field, value); err != nil {
			log.WithField("field", key).Debug("Ignoring unknown form field")
			continue
		}
		changes[field] = value
	}

	log.WithField("changed", len(changes)).Info("Scan edited")
	notify(ctx, c.messenger, conv, ChangesMessage(changes))

	c.finish(ctx, conv, actor)
	return nil
}

func (c *InteractionController) finish(ctx context.Context, conv string, actor models.Identity) {
	// Limpeza e avanço acontecem em qualquer caminho
	defer func() {
		c.store.Clear(conv)
		c.queue.Advance(ctx, conv)
	}()

	record := c.store.Snapshot(conv)

	if err := c.persist(ctx, conv, actor, record); err != nil {
		logger.WithFields(logrus.Fields{
			"conversationId": conv,
			"error":          err.Error(),
		}).Error("Failed to persist scan")
		notify(ctx, c.messenger, conv, TextMessage(fmt.Sprintf(MsgSaveFailed, err.Error())))
	} else {
		notify(ctx, c.messenger, conv, TextMessage(MsgSaved))
	}

	c.sendEmailLinks(ctx, conv, record)
}

func (c *InteractionController) persist(ctx context.Context, conv string, actor models.Identity, record models.ScanRecord) error {
	if c.ledger == nil {
		return nil
	}
	row := models.LedgerRow{
		ID:             uuid.NewString(),
		Timestamp:      c.now().UTC(),
		Actor:          actor.Label(),
		ConversationID: conv,
		Record:         record,
	}
	if err := c.ledger.Append(ctx, row); err != nil {
		if errors.Is(err, ErrPersistence) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (c *InteractionController) sendEmailLinks(ctx context.Context, conv string, record models.ScanRecord) {
	to := record[models.FieldEmail]
	if to == "" {
		notify(ctx, c.messenger, conv, TextMessage(MsgNoEmail))
		return
	}

	subject, body := EmailBody(record)
	pcURL, err := GmailComposeURL(to, subject, body)
	if err != nil {
		notify(ctx, c.messenger, conv, TextMessage(fmt.Sprintf(MsgInvalidEmail, to)))
		return
	}
	mobileURL, err := MailtoURL(to, subject, body)
	if err != nil {
		notify(ctx, c.messenger, conv, TextMessage(fmt.Sprintf(MsgInvalidEmail, to)))
		return
	}
	notify(ctx, c.messenger, conv, EmailLinksMessage(mobileURL, pcURL))
}

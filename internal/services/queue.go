package services

import (
	"context"
	"errors"
	"sync"

	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"

	"github.com/sirupsen/logrus"
)

type Fetcher interface {
	Fetch(ctx context.Context, url, credential string) ([]byte, error)
	LooksLikeImage(ctx context.Context, ref models.AttachmentRef, credential string) bool
}

type Extractor interface {
	Extract(ctx context.Context, imageData []byte) (models.ScanRecord, error)
}

// Archiver guarda uma cópia da imagem original. Opcional.
type Archiver interface {
	Archive(ctx context.Context, conv string, ref models.AttachmentRef, data []byte) (string, error)
}

type QueueStatus struct {
	Pending    int  `json:"pending"`
	Processing bool `json:"processing"`
	Awaiting   bool `json:"awaiting"`
	Processed  int  `json:"processed"`
	Total      int  `json:"total"`
	Scan       int  `json:"scan"`
}

type conversationQueue struct {
	mu         sync.Mutex
	pending    []models.AttachmentRef
	processing bool
	awaiting   bool
	credential string
	processed  int
	total      int
	// Número da leitura aguardando ação; nunca reinicia
	scanSeq int
}

// UploadQueue processa os anexos de cada conversa um por vez, em ordem de chegada.
// Depois de uma extração bem-sucedida a fila fica parada até Advance.
type UploadQueue struct {
	mu     sync.Mutex
	queues map[string]*conversationQueue

	fetcher   Fetcher
	extractor Extractor
	store     *ScanStore
	messenger Messenger
	archiver  Archiver
}

func NewUploadQueue(fetcher Fetcher, extractor Extractor, store *ScanStore, messenger Messenger, archiver Archiver) *UploadQueue {
	return &UploadQueue{
		queues:    make(map[string]*conversationQueue),
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		messenger: messenger,
		archiver:  archiver,
	}
}

func (u *UploadQueue) queue(conv string) *conversationQueue {
	u.mu.Lock()
	defer u.mu.Unlock()
	q, ok := u.queues[conv]
	if !ok {
		q = &conversationQueue{}
		u.queues[conv] = q
	}
	return q
}

// Enqueue adiciona o lote e, se a conversa estiver ociosa, começa a drenar.
// Bloqueia até a fila parar (ocioso ou aguardando ação do usuário).
func (u *UploadQueue) Enqueue(ctx context.Context, conv string, attachments []models.AttachmentRef, credential string) {
	if len(attachments) == 0 {
		return
	}
	q := u.queue(conv)

	q.mu.Lock()
	q.pending = append(q.pending, attachments...)
	q.total += len(attachments)
	q.credential = credential
	if q.processing {
		pending := len(q.pending)
		q.mu.Unlock()
		logger.WithFields(logrus.Fields{
			"conversationId": conv,
			"pending":        pending,
		}).Info("Attachments queued behind in-flight scan")
		return
	}
	q.processing = true
	q.mu.Unlock()

	u.drain(ctx, conv, q)
}

// Advance fecha o item que aguardava ação do usuário e segue para o próximo.
func (u *UploadQueue) Advance(ctx context.Context, conv string) {
	q := u.queue(conv)

	q.mu.Lock()
	if !q.awaiting {
		q.mu.Unlock()
		logger.WithFields(logrus.Fields{
			"conversationId": conv,
		}).Warn("Advance ignored: no scan awaiting user action")
		return
	}
	q.awaiting = false
	q.processed++
	q.mu.Unlock()

	u.drain(ctx, conv, q)
}

func (u *UploadQueue) Status(conv string) QueueStatus {
	q := u.queue(conv)
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStatus{
		Pending:    len(q.pending),
		Processing: q.processing,
		Awaiting:   q.awaiting,
		Processed:  q.processed,
		Total:      q.total,
		Scan:       q.scanSeq,
	}
}

// Awaiting devolve o número da leitura que espera ação do usuário, se houver.
func (u *UploadQueue) Awaiting(conv string) (int, bool) {
	q := u.queue(conv)
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.scanSeq, q.awaiting
}

func (u *UploadQueue) drain(ctx context.Context, conv string, q *conversationQueue) {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.awaiting = false
			q.processed = 0
			q.total = 0
			q.mu.Unlock()
			logger.WithFields(logrus.Fields{
				"conversationId": conv,
			}).Debug("Queue drained")
			return
		}
		ref := q.pending[0]
		q.pending = q.pending[1:]
		current, total, credential := q.processed+1, q.total, q.credential
		q.mu.Unlock()

		log := logger.WithFields(logrus.Fields{
			"conversationId": conv,
			"fileId":         ref.ID,
			"file":           ref.Name,
			"position":       current,
			"total":          total,
		})
		notify(ctx, u.messenger, conv, ProgressMessage(current, total))

		record, err := u.scan(ctx, conv, ref, credential)
		if err != nil {
			switch {
			case errors.Is(err, errNotImage):
				log.Info("Skipping non-image attachment")
				notify(ctx, u.messenger, conv, SkippedMessage(ref))
			case errors.Is(err, ErrDownload):
				log.WithField("error", err.Error()).Error("Failed to download attachment")
				notify(ctx, u.messenger, conv, TextMessage(MsgDownloadFailed))
			default:
				log.WithField("error", err.Error()).Error("Failed to extract card")
				notify(ctx, u.messenger, conv, TextMessage(MsgExtractionFailed))
			}
			q.mu.Lock()
			q.processed++
			q.mu.Unlock()
			continue
		}

		u.store.Merge(conv, record)

		q.mu.Lock()
		q.awaiting = true
		q.scanSeq++
		seq := q.scanSeq
		q.mu.Unlock()

		log.WithField("scan", seq).Info("Scan ready, waiting for user action")
		notify(ctx, u.messenger, conv, SummaryMessage(u.store.Snapshot(conv), seq))
		return
	}
}

var errNotImage = errors.New("attachment is not an image")

func (u *UploadQueue) scan(ctx context.Context, conv string, ref models.AttachmentRef, credential string) (models.ScanRecord, error) {
	if !u.fetcher.LooksLikeImage(ctx, ref, credential) {
		return nil, errNotImage
	}

	data, err := u.fetcher.Fetch(ctx, ref.URL, credential)
	if err != nil {
		return nil, err
	}

	if u.archiver != nil {
		if key, err := u.archiver.Archive(ctx, conv, ref, data); err != nil {
			logger.WithFields(logrus.Fields{
				"conversationId": conv,
				"fileId":         ref.ID,
				"error":          err.Error(),
			}).Warn("Failed to archive card image")
		} else {
			logger.WithFields(logrus.Fields{
				"conversationId": conv,
				"key":            key,
			}).Debug("Card image archived")
		}
	}

	return u.extractor.Extract(ctx, data)
}

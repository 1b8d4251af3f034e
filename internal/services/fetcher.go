package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	MaxImageBytes = 20 << 20

	fetchTimeout = 30 * time.Second
	probeTimeout = 10 * time.Second
)

var imageExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "heic", "heif", "tif", "tiff"}

// ImageFetcher baixa anexos privados da conversa e decide se parecem imagens.
type ImageFetcher struct {
	client       *resty.Client
	fetchTimeout time.Duration
	probeTimeout time.Duration
	predicates   []imagePredicate
}

type imagePredicate func(ctx context.Context, ref models.AttachmentRef, credential string) bool

func NewImageFetcher() *ImageFetcher {
	f := &ImageFetcher{
		client:       resty.New().SetHeader("User-Agent", "meishi-bot"),
		fetchTimeout: fetchTimeout,
		probeTimeout: probeTimeout,
	}
	// Ordem importa: o HEAD só roda quando os metadados não bastam
	f.predicates = []imagePredicate{
		mimeTypeIsImage,
		nameHasImageExtension,
		fileTypeIsImage,
		f.headIsImage,
	}
	return f
}

// Fetch baixa o arquivo com o token do bot. Qualquer falha vira ErrDownload.
func (f *ImageFetcher) Fetch(ctx context.Context, url, credential string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	resp, err := f.client.R().
		SetContext(ctx).
		SetAuthToken(credential).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrDownload, resp.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: file larger than %d bytes", ErrDownload, MaxImageBytes)
	}

	logger.WithFields(logrus.Fields{
		"bytes": len(data),
	}).Debug("Downloaded attachment")

	return data, nil
}

// LooksLikeImage avalia os predicados em ordem e para no primeiro positivo.
func (f *ImageFetcher) LooksLikeImage(ctx context.Context, ref models.AttachmentRef, credential string) bool {
	for _, p := range f.predicates {
		if p(ctx, ref, credential) {
			return true
		}
	}
	return false
}

func mimeTypeIsImage(_ context.Context, ref models.AttachmentRef, _ string) bool {
	return strings.HasPrefix(strings.ToLower(ref.MimeType), "image/")
}

func nameHasImageExtension(_ context.Context, ref models.AttachmentRef, _ string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(ref.Name)), ".")
	return ext != "" && isImageToken(ext)
}

func fileTypeIsImage(_ context.Context, ref models.AttachmentRef, _ string) bool {
	return isImageToken(strings.ToLower(ref.FileType))
}

func (f *ImageFetcher) headIsImage(ctx context.Context, ref models.AttachmentRef, credential string) bool {
	if ref.URL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	resp, err := f.client.R().
		SetContext(ctx).
		SetAuthToken(credential).
		Head(ref.URL)
	if err != nil {
		// Inconclusivo: trata como não-imagem
		logger.WithFields(logrus.Fields{
			"fileId": ref.ID,
			"error":  err.Error(),
		}).Debug("HEAD probe failed")
		return false
	}
	return strings.HasPrefix(strings.ToLower(resp.Header().Get("Content-Type")), "image/")
}

func isImageToken(token string) bool {
	for _, ext := range imageExtensions {
		if token == ext {
			return true
		}
	}
	return false
}

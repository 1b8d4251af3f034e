package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"meishi-bot/internal/config"
	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver guarda as fotos originais num bucket S3 compatível (R2, MinIO).
type S3Archiver struct {
	client s3PutAPI
	bucket string
	now    func() time.Time
}

func NewS3Archiver(cfg config.ArchiveConfig) *S3Archiver {
	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}

	// Bucket com ponto quebra o certificado em virtual-host
	usePathStyle := cfg.PathStyle || strings.Contains(cfg.Bucket, ".")

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = usePathStyle
	})

	logger.WithFields(logrus.Fields{
		"bucket":   cfg.Bucket,
		"region":   cfg.Region,
		"endpoint": cfg.Endpoint,
	}).Info("S3 archive initialized")

	return &S3Archiver{client: client, bucket: cfg.Bucket, now: time.Now}
}

// Archive grava a imagem em cards/<conversa>/<aaaa>/<mm>/<dd>/<uuid>.<ext>.
func (a *S3Archiver) Archive(ctx context.Context, conv string, ref models.AttachmentRef, data []byte) (string, error) {
	key := a.objectKey(conv, ref)

	contentType := ref.MimeType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"conversation": conv,
			"file-id":      ref.ID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (a *S3Archiver) objectKey(conv string, ref models.AttachmentRef) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(ref.Name)), ".")
	if ext == "" {
		ext = strings.ToLower(ref.FileType)
	}
	if ext == "" {
		ext = "bin"
	}
	now := a.now().UTC()
	return fmt.Sprintf("cards/%s/%s/%s.%s",
		sanitizeKeySegment(conv), now.Format("2006/01/02"), uuid.NewString(), ext)
}

func sanitizeKeySegment(s string) string {
	return strings.NewReplacer("/", "_", "@", "_", ":", "_", " ", "_").Replace(s)
}

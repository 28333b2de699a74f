package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
)

const pdfContentType = "application/pdf"

// S3Storage stores ticket PDFs in any S3-compatible bucket (AWS, R2, MinIO,
// Supabase storage).
type S3Storage struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	endpoint      string
	region        string
	publicBaseURL string
	ticketPrefix  string
	logger        *logger.Logger
}

func NewS3Storage(ctx context.Context, cfg config.StorageConfig, l *logger.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	prefix := strings.Trim(cfg.TicketPrefix, "/")
	if prefix == "" {
		prefix = "tickets"
	}

	return &S3Storage{
		client:        client,
		uploader:      manager.NewUploader(client),
		bucket:        cfg.Bucket,
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		region:        cfg.Region,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		ticketPrefix:  prefix,
		logger:        l,
	}, nil
}

// TicketKey is the object key of a booking's PDF.
func (s *S3Storage) TicketKey(bookingID string) string {
	return fmt.Sprintf("%s/%s.pdf", s.ticketPrefix, bookingID)
}

// UploadTicket stores the PDF under TicketKey and returns its public URL.
// Re-uploading the same booking overwrites the object.
func (s *S3Storage) UploadTicket(ctx context.Context, bookingID string, pdf []byte) (string, error) {
	return s.Upload(ctx, s.TicketKey(bookingID), pdf, pdfContentType)
}

func (s *S3Storage) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	key = strings.TrimPrefix(key, "/")

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url := s.URL(key)
	s.logger.Info("STORAGE", fmt.Sprintf("Uploaded %s (%d bytes) to %s", key, len(body), url))
	return url, nil
}

// URL returns the public URL of key.
func (s *S3Storage) URL(key string) string {
	key = strings.TrimPrefix(key, "/")
	switch {
	case s.publicBaseURL != "":
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

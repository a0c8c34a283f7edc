package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Storage keeps uploaded document files in S3.
type Storage struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStorage creates a Storage. If bucket is empty, uploads fail with ErrStorageDisabled.
func NewStorage(s3Client S3API, bucket string, logger *logging.Logger) *Storage {
	if logger == nil {
		logger = logging.Default()
	}
	return &Storage{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if a bucket and client are configured.
func (s *Storage) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Put uploads a file under documents/<application_id>/<uuid>-<filename> and
// returns its s3:// URL.
func (s *Storage) Put(ctx context.Context, applicationID int64, filename, contentType string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("documents/%d/%s-%s", applicationID, uuid.New().String(), sanitizeFilename(filename))
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("documents: s3 put %s: %w", key, err)
	}
	s.logger.Info("stored document", "application_id", applicationID, "s3_key", key, "bytes", len(data))
	return "s3://" + s.bucket + "/" + key, nil
}

// Open streams a stored file back. The caller closes the reader.
func (s *Storage) Open(ctx context.Context, fileURL string) (io.ReadCloser, string, error) {
	if !s.Enabled() {
		return nil, "", ErrStorageDisabled
	}
	prefix := "s3://" + s.bucket + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return nil, "", fmt.Errorf("documents: %q is not in bucket %s", fileURL, s.bucket)
	}
	key := strings.TrimPrefix(fileURL, prefix)
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("documents: s3 get %s: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

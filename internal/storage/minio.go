package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
// The bucket stays private; clients read objects through presigned URLs.
type MinioStorage struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

// MinioOptions configures NewMinioStorage.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists and
// returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, opts MinioOptions, log *zap.Logger) (*MinioStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		log.Info("storage: created bucket", zap.String("bucket", opts.Bucket))
	}

	return &MinioStorage{
		client: client,
		bucket: opts.Bucket,
		log:    log,
	}, nil
}

// Put re-encodes the image to JPEG and uploads it under key with a ".jpg"
// extension. The returned key is the one to persist.
func (s *MinioStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty body", ErrInvalidInput)
	}
	if !SupportedContentType(contentType) {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, contentType)
	}

	encoded, err := normalizeImage(data)
	if err != nil {
		return "", err
	}

	storedKey := normalizedKey(key)
	_, err = s.client.PutObject(ctx, s.bucket, storedKey, bytes.NewReader(encoded), int64(len(encoded)), minio.PutObjectOptions{
		ContentType: normalizedContentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object %q: %v", ErrUnavailable, storedKey, err)
	}

	s.log.Debug("storage: object stored",
		zap.String("key", storedKey),
		zap.Int("original_bytes", len(data)),
		zap.Int("stored_bytes", len(encoded)),
	)
	return storedKey, nil
}

// PresignedURL signs a GET request for key valid for ttl.
func (s *MinioStorage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: presign %q: %v", ErrUnavailable, key, err)
	}
	return u.String(), nil
}

// Delete removes the object at key from the bucket. A missing key is not an error.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return fmt.Errorf("%w: remove object %q: %v", ErrUnavailable, key, err)
}

// Ping checks that the bucket is reachable; used by the health endpoint.
func (s *MinioStorage) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

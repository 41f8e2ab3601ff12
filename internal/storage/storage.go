// Package storage defines the interface for object storage operations.
// The MinIO implementation works with any S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidInput is returned when the payload cannot be stored (empty body,
// unsupported content type or undecodable image).
var ErrInvalidInput = errors.New("invalid object")

// ErrUnavailable is returned when the storage backend fails.
var ErrUnavailable = errors.New("object storage unavailable")

// DefaultPresignTTL is used when a caller passes a non-positive TTL.
const DefaultPresignTTL = time.Hour

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks . Storage

// Storage is the interface for storing, signing and removing objects.
type Storage interface {
	// Put stores data and returns the key the object was actually written under,
	// which may differ from key. The object is readable once Put returns.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// PresignedURL returns a URL granting read access to key for ttl.
	// It does not check that the object exists.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes the object at key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
}

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// SupportedContentType reports whether uploads of contentType are accepted.
func SupportedContentType(contentType string) bool {
	return supportedTypes[contentType]
}

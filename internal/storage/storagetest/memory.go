// Package storagetest provides an in-memory storage.Storage for tests.
package storagetest

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/journeys/service/internal/storage"
)

// Memory keeps objects in a map. The *Err fields, when set, are returned by
// the matching operation instead of touching the map.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	PutErr     error
	PresignErr error
	DeleteErr  error

	// Puts and Deletes count calls that reached the map.
	Puts    int
	Deletes int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty body", storage.ErrInvalidInput)
	}
	if !storage.SupportedContentType(contentType) {
		return "", fmt.Errorf("%w: unsupported content type %q", storage.ErrInvalidInput, contentType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return "", m.PutErr
	}
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	m.Puts++
	return key, nil
}

func (m *Memory) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	if ttl <= 0 {
		ttl = storage.DefaultPresignTTL
	}
	q := url.Values{}
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int(ttl.Seconds())))
	return "https://storage.test/bucket/" + key + "?" + q.Encode(), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, key)
	delete(m.types, key)
	m.Deletes++
	return nil
}

// Get returns the stored bytes for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

// Len is the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

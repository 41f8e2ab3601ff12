// Package post implements the photo-post feed: persisted post records, their
// images in object storage, and the HTTP endpoints in front of them.
package post

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Error kinds surfaced by the feed. Repository and service errors wrap one of
// these; the HTTP layer maps them to status codes.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("post not found")
	ErrForbidden             = errors.New("forbidden")
	ErrStorageUnavailable    = errors.New("object storage unavailable")
	ErrRepositoryUnavailable = errors.New("post repository unavailable")
)

// ValidationError carries per-field messages and matches ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidField(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Post is a stored photo entry.
type Post struct {
	ID          string
	AuthorID    string
	StorageKey  string
	Description string
	CreatedAt   time.Time
	// LikedBy holds the ids of users currently liking the post, without duplicates.
	LikedBy []string
}

// LikedByUser reports whether userID currently likes the post.
func (p *Post) LikedByUser(userID string) bool {
	return userID != "" && slices.Contains(p.LikedBy, userID)
}

// Author is the public profile attached to a post view.
type Author struct {
	ID         string  `json:"id"`
	Username   string  `json:"username,omitempty"`
	ProfilePic *string `json:"profilePic,omitempty"`
}

// View is the client-facing representation of a Post. The storage key is
// replaced by a short-lived image URL and likes are reduced to a count.
type View struct {
	ID          string    `json:"id"`
	Author      Author    `json:"author"`
	ImageURL    string    `json:"imageUrl"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	LikesCount  int       `json:"likesCount"`
	IsLiked     bool      `json:"isLiked"`
}

// LikeResult is the state of a post's likes right after a toggle.
type LikeResult struct {
	LikesCount int  `json:"likesCount"`
	IsLiked    bool `json:"isLiked"`
}

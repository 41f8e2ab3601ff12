package post

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/journeys/service/internal/auth"
	"github.com/journeys/service/internal/events"
	"github.com/journeys/service/internal/metrics"
	"github.com/journeys/service/internal/storage"
	"github.com/journeys/service/internal/user"
)

//go:generate mockgen -destination=mocks/mock_post.go -package=mocks . Store,AuthorDirectory

// Store persists post records. *Repository is the PostgreSQL implementation.
type Store interface {
	Create(ctx context.Context, authorID, storageKey, description string) (*Post, error)
	ListPage(ctx context.Context, offset, limit int) ([]Post, error)
	GetByID(ctx context.Context, id string) (*Post, error)
	DeleteByID(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id, userID string) (*LikeResult, error)
}

// AuthorDirectory resolves author ids to profiles in one batch.
type AuthorDirectory interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]user.User, error)
}

// Options tunes the Service. Zero values fall back to the defaults below.
type Options struct {
	PresignTTL     time.Duration
	StorageTimeout time.Duration
	DBTimeout      time.Duration
}

const (
	defaultStorageTimeout = 10 * time.Second
	defaultDBTimeout      = 5 * time.Second
)

// Service is the feed's use-case layer. It is the only component that
// combines the post store with object storage.
type Service struct {
	store   Store
	objects storage.Storage
	authors AuthorDirectory
	events  events.Publisher
	opts    Options
	log     *zap.Logger

	newKey func(authorID string) string
	now    func() time.Time
}

// NewService creates a new post Service.
func NewService(store Store, objects storage.Storage, authors AuthorDirectory, pub events.Publisher, opts Options, log *zap.Logger) *Service {
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = storage.DefaultPresignTTL
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = defaultStorageTimeout
	}
	if opts.DBTimeout <= 0 {
		opts.DBTimeout = defaultDBTimeout
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		store:   store,
		objects: objects,
		authors: authors,
		events:  pub,
		opts:    opts,
		log:     log,
		newKey:  newStorageKey,
		now:     time.Now,
	}
}

// newStorageKey gives every upload a fresh key so deleting one post can never
// remove an image still referenced by another.
func newStorageKey(authorID string) string {
	return fmt.Sprintf("posts/%s/%s", url.PathEscape(authorID), uuid.NewString())
}

// CreatePost uploads the image and then records the post. Nothing is written
// when validation or the upload fails. If the record cannot be written after
// a successful upload the object is left behind and logged as orphaned.
// Once the record exists the call succeeds even if the view cannot be fully
// resolved.
func (s *Service) CreatePost(ctx context.Context, author auth.Identity, image []byte, contentType, description string) (*View, error) {
	if author.UserID == "" {
		return nil, fmt.Errorf("%w: missing author identity", ErrForbidden)
	}

	fields := make(map[string]string)
	if len(image) == 0 {
		fields["file"] = "image file is required"
	}
	description = strings.TrimSpace(description)
	if description == "" {
		fields["description"] = "description is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	putCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	storedKey, err := s.objects.Put(putCtx, s.newKey(author.UserID), image, contentType)
	cancel()
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			return nil, invalidField("file", "unsupported or unreadable image")
		}
		return nil, fmt.Errorf("upload image: %w: %w", ErrStorageUnavailable, err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	p, err := s.store.Create(dbCtx, author.UserID, storedKey, description)
	cancel()
	if err != nil {
		metrics.OrphanedObjectsTotal.Inc()
		s.log.Error("post record not created, stored image orphaned",
			zap.String("storage_key", storedKey),
			zap.String("author_id", author.UserID),
			zap.Error(err),
		)
		return nil, storeErr("create post", err)
	}

	metrics.PostsCreatedTotal.Inc()
	s.publish(events.SubjectPostCreated, events.PostEvent{PostID: p.ID, AuthorID: p.AuthorID})

	views, err := s.views(ctx, []Post{*p}, author.UserID)
	if err != nil {
		s.log.Warn("post created, view resolved without profile",
			zap.String("post_id", p.ID),
			zap.Error(err),
		)
		return s.bareView(ctx, p, author), nil
	}
	return &views[0], nil
}

// bareView describes a stored post from the caller's identity alone. The
// image URL is left empty when it cannot be signed.
func (s *Service) bareView(ctx context.Context, p *Post, author auth.Identity) *View {
	imageURL, _ := s.presign(ctx, p.StorageKey)
	return &View{
		ID:          p.ID,
		Author:      Author{ID: p.AuthorID, Username: author.Username},
		ImageURL:    imageURL,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		LikesCount:  len(p.LikedBy),
		IsLiked:     p.LikedByUser(author.UserID),
	}
}

// ListFeed returns page (1-based) of the feed, newest first. pageSize is
// capped at MaxPageSize before the offset is computed. Image URLs are signed
// on every call and never cached.
func (s *Service) ListFeed(ctx context.Context, page, pageSize int, viewer string) ([]View, error) {
	if page < 1 {
		return nil, invalidField("page", "page must be at least 1")
	}
	if pageSize < 1 {
		return nil, invalidField("limit", "limit must be at least 1")
	}

	pageSize = min(pageSize, MaxPageSize)
	if page-1 > math.MaxInt/pageSize {
		return []View{}, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	posts, err := s.store.ListPage(dbCtx, (page-1)*pageSize, pageSize)
	cancel()
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return s.views(ctx, posts, viewer)
}

// GetPost returns a single post view.
func (s *Service) GetPost(ctx context.Context, id, viewer string) (*View, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []Post{*p}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ImageURL signs a fresh URL for the post's image.
func (s *Service) ImageURL(ctx context.Context, id string) (string, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return s.presign(ctx, p.StorageKey)
}

// DeletePost removes a post on behalf of its author. The image is deleted
// first; if that fails the record is kept so the post stays listed with a
// reachable image and the delete can be retried.
func (s *Service) DeletePost(ctx context.Context, id string, requester auth.Identity) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if requester.UserID == "" || p.AuthorID != requester.UserID {
		return ErrForbidden
	}

	objCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	err = s.objects.Delete(objCtx, p.StorageKey)
	cancel()
	if err != nil {
		return fmt.Errorf("delete image: %w: %w", ErrStorageUnavailable, err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	err = s.store.DeleteByID(dbCtx, p.ID)
	cancel()
	if err != nil {
		s.log.Error("image deleted but post record remains",
			zap.String("post_id", p.ID),
			zap.String("storage_key", p.StorageKey),
			zap.Error(err),
		)
		return storeErr("delete post", err)
	}

	metrics.PostsDeletedTotal.Inc()
	s.publish(events.SubjectPostDeleted, events.PostEvent{PostID: p.ID, AuthorID: p.AuthorID})
	return nil
}

// ToggleLike likes the post for the caller, or unlikes it if already liked.
func (s *Service) ToggleLike(ctx context.Context, id string, caller auth.Identity) (*LikeResult, error) {
	if caller.UserID == "" {
		return nil, fmt.Errorf("%w: missing caller identity", ErrForbidden)
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	res, err := s.store.ToggleLike(dbCtx, id, caller.UserID)
	cancel()
	if err != nil {
		return nil, storeErr("toggle like", err)
	}

	subject, state := events.SubjectPostLiked, "liked"
	if !res.IsLiked {
		subject, state = events.SubjectPostUnliked, "unliked"
	}
	metrics.LikesToggledTotal.WithLabelValues(state).Inc()
	s.publish(subject, events.PostEvent{PostID: id, UserID: caller.UserID, LikesCount: res.LikesCount})
	return res, nil
}

func (s *Service) load(ctx context.Context, id string) (*Post, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	defer cancel()

	p, err := s.store.GetByID(dbCtx, id)
	if err != nil {
		return nil, storeErr("get post", err)
	}
	return p, nil
}

// views resolves authors in one lookup and signs an image URL per post.
func (s *Service) views(ctx context.Context, posts []Post, viewer string) ([]View, error) {
	out := make([]View, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	seen := make(map[string]bool, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			ids = append(ids, p.AuthorID)
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	profiles, err := s.authors.GetByIDs(dbCtx, ids)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("load authors: %w: %w", ErrRepositoryUnavailable, err)
	}

	for i := range posts {
		p := &posts[i]
		imageURL, err := s.presign(ctx, p.StorageKey)
		if err != nil {
			return nil, err
		}

		author := Author{ID: p.AuthorID}
		if u, ok := profiles[p.AuthorID]; ok {
			author.Username = u.Username
			author.ProfilePic = u.ProfilePic
		}

		out = append(out, View{
			ID:          p.ID,
			Author:      author,
			ImageURL:    imageURL,
			Description: p.Description,
			CreatedAt:   p.CreatedAt,
			LikesCount:  len(p.LikedBy),
			IsLiked:     p.LikedByUser(viewer),
		})
	}
	return out, nil
}

func (s *Service) presign(ctx context.Context, key string) (string, error) {
	signCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	u, err := s.objects.PresignedURL(signCtx, key, s.opts.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("sign image url: %w: %w", ErrStorageUnavailable, err)
	}
	return u, nil
}

func (s *Service) publish(subject string, e events.PostEvent) {
	e.Timestamp = s.now().UTC()
	if err := s.events.Publish(subject, e); err != nil {
		s.log.Warn("publish event failed", zap.String("subject", subject), zap.String("post_id", e.PostID), zap.Error(err))
	}
}

// storeErr keeps the error kinds the store already reports and classifies
// anything else as a repository failure.
func storeErr(op string, err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrNotFound, ErrForbidden, ErrRepositoryUnavailable} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRepositoryUnavailable, err)
}

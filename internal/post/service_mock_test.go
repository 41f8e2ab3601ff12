package post_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/journeys/service/internal/auth"
	"github.com/journeys/service/internal/events"
	"github.com/journeys/service/internal/post"
	"github.com/journeys/service/internal/post/mocks"
	"github.com/journeys/service/internal/storage"
	storagemocks "github.com/journeys/service/internal/storage/mocks"
	"github.com/journeys/service/internal/user"
)

type mockDeps struct {
	store   *mocks.MockStore
	authors *mocks.MockAuthorDirectory
	objects *storagemocks.MockStorage
	svc     *post.Service
}

func newMockDeps(t *testing.T) *mockDeps {
	ctrl := gomock.NewController(t)
	d := &mockDeps{
		store:   mocks.NewMockStore(ctrl),
		authors: mocks.NewMockAuthorDirectory(ctrl),
		objects: storagemocks.NewMockStorage(ctrl),
	}
	d.svc = post.NewService(d.store, d.objects, d.authors, events.NopPublisher{}, post.Options{
		PresignTTL: 10 * time.Minute,
	}, zap.NewNop())
	return d
}

func samplePost() *post.Post {
	return &post.Post{
		ID:          "7d3c8a9e-7a4e-4f3b-9a51-0f0e0c1b2a39",
		AuthorID:    "u-alice",
		StorageKey:  "posts/u-alice/abc.jpg",
		Description: "caption",
		CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDeletePostRemovesImageBeforeRecord(t *testing.T) {
	d := newMockDeps(t)
	p := samplePost()

	gomock.InOrder(
		d.store.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil),
		d.objects.EXPECT().Delete(gomock.Any(), p.StorageKey).Return(nil),
		d.store.EXPECT().DeleteByID(gomock.Any(), p.ID).Return(nil),
	)

	err := d.svc.DeletePost(context.Background(), p.ID, auth.Identity{UserID: "u-alice"})
	assert.NoError(t, err)
}

func TestDeletePostStopsWhenImageDeleteFails(t *testing.T) {
	d := newMockDeps(t)
	p := samplePost()

	d.store.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	d.objects.EXPECT().Delete(gomock.Any(), p.StorageKey).Return(storage.ErrUnavailable)
	d.store.EXPECT().DeleteByID(gomock.Any(), gomock.Any()).Times(0)

	err := d.svc.DeletePost(context.Background(), p.ID, auth.Identity{UserID: "u-alice"})
	assert.ErrorIs(t, err, post.ErrStorageUnavailable)
}

func TestDeletePostForbiddenTouchesNothing(t *testing.T) {
	d := newMockDeps(t)
	p := samplePost()

	d.store.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	d.objects.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)
	d.store.EXPECT().DeleteByID(gomock.Any(), gomock.Any()).Times(0)

	err := d.svc.DeletePost(context.Background(), p.ID, auth.Identity{UserID: "u-bob"})
	assert.ErrorIs(t, err, post.ErrForbidden)
}

func TestCreatePostUploadsBeforeInsert(t *testing.T) {
	d := newMockDeps(t)
	p := samplePost()

	gomock.InOrder(
		d.objects.EXPECT().Put(gomock.Any(), gomock.Any(), []byte("img"), "image/png").Return(p.StorageKey, nil),
		d.store.EXPECT().Create(gomock.Any(), "u-alice", p.StorageKey, "caption").Return(p, nil),
		d.authors.EXPECT().GetByIDs(gomock.Any(), []string{"u-alice"}).Return(map[string]user.User{
			"u-alice": {ID: "u-alice", Username: "alice"},
		}, nil),
		d.objects.EXPECT().PresignedURL(gomock.Any(), p.StorageKey, 10*time.Minute).Return("https://signed.example/abc.jpg", nil),
	)

	view, err := d.svc.CreatePost(context.Background(), auth.Identity{UserID: "u-alice"}, []byte("img"), "image/png", "caption")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/abc.jpg", view.ImageURL)
	assert.Equal(t, "alice", view.Author.Username)
}

func TestCreatePostRejectedImageSkipsInsert(t *testing.T) {
	d := newMockDeps(t)

	d.objects.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.Join(storage.ErrInvalidInput, errors.New("image: unknown format")))
	d.store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := d.svc.CreatePost(context.Background(), auth.Identity{UserID: "u-alice"}, []byte("junk"), "image/png", "caption")
	var verr *post.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "file")
}

package post

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postID = "7d3c8a9e-7a4e-4f3b-9a51-0f0e0c1b2a39"

var postRowColumns = []string{"id", "author_id", "storage_key", "description", "liked_by", "created_at"}

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs("u-alice", "posts/u-alice/a.jpg", "caption").
		WillReturnRows(mock.NewRows(postRowColumns).
			AddRow(postID, "u-alice", "posts/u-alice/a.jpg", "caption", []string{}, created))

	p, err := repo.Create(context.Background(), "u-alice", "posts/u-alice/a.jpg", "  caption ")
	require.NoError(t, err)
	assert.Equal(t, postID, p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Empty(t, p.LikedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateRejectsEmptyDescription(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.Create(context.Background(), "u-alice", "k", " \t ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs("u-alice", "k", "caption").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Create(context.Background(), "u-alice", "k", "caption")
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)
}

func TestRepositoryListPage(t *testing.T) {
	repo, mock := newMockRepo(t)
	t1 := time.Date(2024, 3, 1, 12, 0, 2, 0, time.UTC)
	t2 := time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC)

	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
		WithArgs(2, 2).
		WillReturnRows(mock.NewRows(postRowColumns).
			AddRow("p2", "u-bob", "k2", "second", []string{"u-alice"}, t1).
			AddRow("p1", "u-alice", "k1", "first", []string{}, t2))

	posts, err := repo.ListPage(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, []string{"u-alice"}, posts[0].LikedBy)
	assert.Equal(t, "p1", posts[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListPageCapsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM posts`).
		WithArgs(0, MaxPageSize).
		WillReturnRows(mock.NewRows(postRowColumns))

	posts, err := repo.ListPage(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListPageBounds(t *testing.T) {
	repo, mock := newMockRepo(t)

	posts, err := repo.ListPage(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)

	_, err = repo.ListPage(context.Background(), -1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = repo.ListPage(context.Background(), 0, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(postID).
		WillReturnRows(mock.NewRows(postRowColumns).
			AddRow(postID, "u-alice", "k", "caption", []string{"u-bob"}, created))

	p, err := repo.GetByID(context.Background(), postID)
	require.NoError(t, err)
	assert.True(t, p.LikedByUser("u-bob"))
	assert.False(t, p.LikedByUser("u-alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(postID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), postID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDeleteByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM posts`).
		WithArgs(postID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM posts`).
		WithArgs(postID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.DeleteByID(context.Background(), postID))
	assert.ErrorIs(t, repo.DeleteByID(context.Background(), postID), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryToggleLike(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE posts`).
		WithArgs(postID, "u-bob").
		WillReturnRows(mock.NewRows([]string{"cardinality", "liked"}).AddRow(3, true))

	res, err := repo.ToggleLike(context.Background(), postID, "u-bob")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{LikesCount: 3, IsLiked: true}, *res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryToggleLikeErrors(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE posts`).
		WithArgs(postID, "u-bob").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`UPDATE posts`).
		WithArgs(postID, "u-bob").
		WillReturnError(errors.New("deadlock detected"))

	_, err := repo.ToggleLike(context.Background(), postID, "u-bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.ToggleLike(context.Background(), postID, "u-bob")
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)

	_, err = repo.ToggleLike(context.Background(), "bogus", "u-bob")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

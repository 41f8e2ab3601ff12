package post

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/journeys/service/internal/db"
)

// MaxPageSize bounds the number of posts returned by a single listing.
const MaxPageSize = 50

const postColumns = `id::text, author_id, storage_key, description, liked_by, created_at`

// Repository handles post persistence in PostgreSQL.
type Repository struct {
	db db.DBTX
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db db.DBTX) *Repository {
	return &Repository{db: db}
}

// Create inserts a post with no likes and returns it with its id and
// creation time.
func (r *Repository) Create(ctx context.Context, authorID, storageKey, description string) (*Post, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, invalidField("description", "description is required")
	}

	p, err := scanPost(r.db.QueryRow(ctx,
		`INSERT INTO posts (author_id, storage_key, description)
		 VALUES ($1, $2, $3)
		 RETURNING `+postColumns,
		authorID, storageKey, description,
	))
	if err != nil {
		return nil, unavailable("create post", err)
	}
	return p, nil
}

// ListPage returns up to limit posts, newest first, after skipping offset.
// limit is capped at MaxPageSize.
func (r *Repository) ListPage(ctx context.Context, offset, limit int) ([]Post, error) {
	if offset < 0 {
		return nil, invalidField("offset", "offset must not be negative")
	}
	if limit < 0 {
		return nil, invalidField("limit", "limit must not be negative")
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if limit == 0 {
		return []Post{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+postColumns+`
		 FROM posts
		 ORDER BY created_at DESC, id DESC
		 OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, unavailable("list posts", err)
	}
	defer rows.Close()

	posts := make([]Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, unavailable("scan post", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate posts", err)
	}
	return posts, nil
}

// GetByID fetches a post. Malformed ids are reported as ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	p, err := scanPost(r.db.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get post", err)
	}
	return p, nil
}

// DeleteByID removes a post. Deleting a missing post returns ErrNotFound.
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return unavailable("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike adds userID to the post's likes if absent, removes it otherwise.
// The membership test and the write happen in one UPDATE; PostgreSQL
// re-evaluates it against the newest row version when toggles race, so
// concurrent toggles by different users are never lost.
func (r *Repository) ToggleLike(ctx context.Context, id, userID string) (*LikeResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	res := &LikeResult{}
	err := r.db.QueryRow(ctx,
		`UPDATE posts
		 SET liked_by = CASE
		     WHEN $2 = ANY(liked_by) THEN array_remove(liked_by, $2)
		     ELSE array_append(liked_by, $2)
		 END
		 WHERE id = $1
		 RETURNING cardinality(liked_by), $2 = ANY(liked_by)`,
		id, userID,
	).Scan(&res.LikesCount, &res.IsLiked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("toggle like", err)
	}
	return res, nil
}

func scanPost(row pgx.Row) (*Post, error) {
	p := &Post{}
	if err := row.Scan(&p.ID, &p.AuthorID, &p.StorageKey, &p.Description, &p.LikedBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRepositoryUnavailable, err)
}

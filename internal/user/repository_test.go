package user

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "username", "email", "profile_pic", "created_at"}

func TestGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pic := "https://cdn.test/alice.png"
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u-alice").
		WillReturnRows(mock.NewRows(userColumns).AddRow("u-alice", "alice", "alice@test", &pic, created))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u-nobody").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(NewRepository(mock))

	u, err := svc.GetByID(context.Background(), "u-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	require.NotNil(t, u.ProfilePic)
	assert.Equal(t, pic, *u.ProfilePic)

	_, err = svc.GetByID(context.Background(), "u-nobody")
	assert.True(t, svc.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ids := []string{"u-alice", "u-bob", "u-gone"}
	mock.ExpectQuery(`id = ANY\(\$1\)`).
		WithArgs(ids).
		WillReturnRows(mock.NewRows(userColumns).
			AddRow("u-alice", "alice", "alice@test", (*string)(nil), created).
			AddRow("u-bob", "bob", "bob@test", (*string)(nil), created))

	svc := NewService(NewRepository(mock))

	users, err := svc.GetByIDs(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "bob", users["u-bob"].Username)
	assert.NotContains(t, users, "u-gone")

	empty, err := svc.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docshare/internal/model"
	"docshare/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizedEmailPostgres_Add(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuthorizedEmailPostgres(db)
	now := time.Now().UTC()
	admin := "admin-1"
	e := &model.AuthorizedEmail{ID: "a1", Email: "New.User@Example.COM", AddedBy: &admin, CreatedAt: now}

	mock.ExpectQuery("INSERT INTO authorized_emails").
		WithArgs("a1", "new.user@example.com", admin, now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "added_by", "created_at"}).
			AddRow("a1", "new.user@example.com", admin, now))

	got, err := repo.Add(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", got.Email)

	mock.ExpectQuery("INSERT INTO authorized_emails").WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = repo.Add(context.Background(), e)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizedEmailPostgres_Remove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuthorizedEmailPostgres(db)

	mock.ExpectExec("DELETE FROM authorized_emails WHERE id = \\$1").WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Remove(context.Background(), "a1"))

	mock.ExpectExec("DELETE FROM authorized_emails WHERE id = \\$1").WithArgs("a2").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Remove(context.Background(), "a2"), sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizedEmailPostgres_ListAndExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuthorizedEmailPostgres(db)

	mock.ExpectQuery("SELECT id, email, added_by, created_at FROM authorized_emails ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "added_by", "created_at"}).
			AddRow("a2", "b@example.com", nil, time.Now()).
			AddRow("a1", "a@example.com", "admin-1", time.Now()))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Nil(t, list[0].AddedBy)

	mock.ExpectQuery("SELECT EXISTS \\( SELECT 1 FROM authorized_emails WHERE lower\\(email\\) = lower\\(\\$1\\) \\)").
		WithArgs("A@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.Exists(context.Background(), "A@Example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

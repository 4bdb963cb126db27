package postgres

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"docshare/internal/model"
	"docshare/internal/repository"
)

// AuthorizedEmailPostgres is a PostgreSQL implementation of repository.AuthorizedEmailRepository.
type AuthorizedEmailPostgres struct {
	db *sql.DB
}

func NewAuthorizedEmailPostgres(db *sql.DB) *AuthorizedEmailPostgres {
	return &AuthorizedEmailPostgres{db: db}
}

var _ repository.AuthorizedEmailRepository = (*AuthorizedEmailPostgres)(nil)

func (r *AuthorizedEmailPostgres) Add(ctx context.Context, e *model.AuthorizedEmail) (*model.AuthorizedEmail, error) {
	q, args, err := qb().Insert("authorized_emails").
		Columns("id", "email", "added_by", "created_at").
		Values(e.ID, strings.ToLower(e.Email), e.AddedBy, e.CreatedAt).
		Suffix("RETURNING id, email, added_by, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var out model.AuthorizedEmail
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&out.ID, &out.Email, &out.AddedBy, &out.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return &out, nil
}

func (r *AuthorizedEmailPostgres) Remove(ctx context.Context, id string) error {
	q, args, err := qb().Delete("authorized_emails").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AuthorizedEmailPostgres) List(ctx context.Context) ([]model.AuthorizedEmail, error) {
	q, args, err := qb().Select("id", "email", "added_by", "created_at").
		From("authorized_emails").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AuthorizedEmail, 0)
	for rows.Next() {
		var e model.AuthorizedEmail
		if err := rows.Scan(&e.ID, &e.Email, &e.AddedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *AuthorizedEmailPostgres) Exists(ctx context.Context, email string) (bool, error) {
	q, args, err := qb().Select("1").
		Prefix("SELECT EXISTS (").
		From("authorized_emails").
		Where(sq.Expr("lower(email) = lower(?)", email)).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

package postgres

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"docshare/internal/model"
	"docshare/internal/repository"
)

// ProfilePostgres is a PostgreSQL implementation of repository.ProfileRepository.
type ProfilePostgres struct {
	db *sql.DB
}

func NewProfilePostgres(db *sql.DB) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

var _ repository.ProfileRepository = (*ProfilePostgres)(nil)

var profileColumns = []string{"id", "email", "full_name", "role", "password_hash", "created_at"}

func scanProfile(row scanner) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.PasswordHash, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfilePostgres) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	q, args, err := qb().Insert("profiles").
		Columns(profileColumns...).
		Values(p.ID, p.Email, p.FullName, string(p.Role), p.PasswordHash, p.CreatedAt).
		Suffix("RETURNING id, email, full_name, role, password_hash, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	out, err := scanProfile(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return out, nil
}

func (r *ProfilePostgres) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	q, args, err := qb().Select(profileColumns...).From("profiles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanProfile(r.db.QueryRowContext(ctx, q, args...))
}

func (r *ProfilePostgres) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	q, args, err := qb().Select(profileColumns...).
		From("profiles").
		Where(sq.Expr("lower(email) = lower(?)", email)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanProfile(r.db.QueryRowContext(ctx, q, args...))
}

func (r *ProfilePostgres) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, id, "password_hash", hash)
}

func (r *ProfilePostgres) SetRole(ctx context.Context, id string, role model.Role) error {
	return r.update(ctx, id, "role", string(role))
}

func (r *ProfilePostgres) update(ctx context.Context, id, column string, value any) error {
	q, args, err := qb().Update("profiles").Set(column, value).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

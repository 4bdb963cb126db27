package postgres

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"docshare/internal/model"
	"docshare/internal/repository"
)

// SharePostgres is a PostgreSQL implementation of repository.ShareRepository.
type SharePostgres struct {
	db *sql.DB
}

func NewSharePostgres(db *sql.DB) *SharePostgres {
	return &SharePostgres{db: db}
}

var _ repository.ShareRepository = (*SharePostgres)(nil)

func (r *SharePostgres) Create(ctx context.Context, s *model.Share) (*model.Share, error) {
	q, args, err := qb().Insert("document_shares").
		Columns("id", "document_id", "shared_by_user_id", "shared_with_user_id", "created_at").
		Values(s.ID, s.DocumentID, s.SharedByUserID, s.SharedWithUserID, s.CreatedAt).
		Suffix("RETURNING id, document_id, shared_by_user_id, shared_with_user_id, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var out model.Share
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&out.ID, &out.DocumentID, &out.SharedByUserID, &out.SharedWithUserID, &out.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return &out, nil
}

func (r *SharePostgres) Delete(ctx context.Context, documentID, sharedWithUserID string) error {
	q, args, err := qb().Delete("document_shares").
		Where(sq.Eq{"document_id": documentID}).
		Where(sq.Eq{"shared_with_user_id": sharedWithUserID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *SharePostgres) Exists(ctx context.Context, documentID, userID string) (bool, error) {
	q, args, err := qb().Select("1").
		Prefix("SELECT EXISTS (").
		From("document_shares").
		Where(sq.Eq{"document_id": documentID}).
		Where(sq.Eq{"shared_with_user_id": userID}).
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

func (r *SharePostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Share, error) {
	q, args, err := qb().Select(
		"s.id", "s.document_id", "s.shared_by_user_id", "s.shared_with_user_id",
		"COALESCE(p.email, '')", "p.full_name", "s.created_at",
	).
		From("document_shares s").
		LeftJoin("profiles p ON p.id = s.shared_with_user_id").
		Where(sq.Eq{"s.document_id": documentID}).
		OrderBy("s.created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Share, 0)
	for rows.Next() {
		var s model.Share
		if err := rows.Scan(
			&s.ID, &s.DocumentID, &s.SharedByUserID, &s.SharedWithUserID,
			&s.SharedWithEmail, &s.SharedWithName, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"docshare/internal/model"
	"docshare/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

var documentColumns = []string{
	"d.id", "d.name", "d.file_path", "d.file_size", "d.file_type", "d.visibility",
	"d.user_id", "COALESCE(p.email, '')", "p.full_name", "d.created_at", "d.updated_at",
}

const (
	documentsTable = "documents d"
	ownerJoin      = "profiles p ON p.id = d.user_id"
	notDeleted     = "d.deleted_at IS NULL"
	sharedWithExpr = "EXISTS (SELECT 1 FROM document_shares s WHERE s.document_id = d.id AND s.shared_with_user_id = ?)"
)

func scanDocument(row scanner) (model.Document, error) {
	var d model.Document
	err := row.Scan(
		&d.ID, &d.Name, &d.StoragePath, &d.Size, &d.ContentType, &d.Visibility,
		&d.OwnerID, &d.OwnerEmail, &d.OwnerName, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q, args, err := qb().Insert("documents").
		Columns("id", "name", "file_path", "file_size", "file_type", "visibility", "user_id", "created_at", "updated_at").
		Values(doc.ID, doc.Name, doc.StoragePath, doc.Size, doc.ContentType, string(doc.Visibility), doc.OwnerID, doc.CreatedAt, doc.CreatedAt).
		Suffix("RETURNING id, name, file_path, file_size, file_type, visibility, user_id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var out model.Document
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&out.ID, &out.Name, &out.StoragePath, &out.Size, &out.ContentType,
		&out.Visibility, &out.OwnerID, &out.CreatedAt, &out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single live document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q, args, err := qb().Select(documentColumns...).
		From(documentsTable).
		LeftJoin(ownerJoin).
		Where(sq.Eq{"d.id": id}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return nil, err
	}

	d, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Search counts and fetches one page of documents. Both statements share the
// same predicate so the total always matches the rows a caller can page through.
func (r *DocumentPostgres) Search(ctx context.Context, sqr repository.SearchQuery) (*repository.PageResult[model.Document], error) {
	pred, err := searchPredicate(sqr)
	if err != nil {
		return nil, err
	}

	cq, cargs, err := qb().Select("COUNT(*)").From(documentsTable).Where(pred).ToSql()
	if err != nil {
		return nil, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, cq, cargs...).Scan(&total); err != nil {
		return nil, err
	}

	items := make([]model.Document, 0)
	if total == 0 {
		return &repository.PageResult[model.Document]{Items: items}, nil
	}

	lq, largs, err := qb().Select(documentColumns...).
		From(documentsTable).
		LeftJoin(ownerJoin).
		Where(pred).
		OrderBy("d.created_at DESC", "d.id DESC").
		Limit(uint64(sqr.Page.Limit)).
		Offset(uint64(sqr.Page.Offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, lq, largs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

func searchPredicate(q repository.SearchQuery) (sq.And, error) {
	pred := sq.And{sq.Expr(notDeleted)}

	switch q.Scope {
	case repository.ScopeOwnPrivate:
		pred = append(pred,
			sq.Eq{"d.user_id": q.ViewerID},
			sq.Eq{"d.visibility": string(model.VisibilityPrivate)},
		)
	case repository.ScopePublic:
		pred = append(pred, sq.Eq{"d.visibility": string(model.VisibilityPublic)})
	case repository.ScopeSharedWith:
		pred = append(pred, sq.Expr(sharedWithExpr, q.ViewerID))
	case repository.ScopeVisible:
		pred = append(pred, sq.Or{
			sq.Eq{"d.user_id": q.ViewerID},
			sq.Eq{"d.visibility": string(model.VisibilityPublic)},
			sq.Expr(sharedWithExpr, q.ViewerID),
		})
	case repository.ScopeAll:
	default:
		return nil, fmt.Errorf("unknown search scope %d", q.Scope)
	}

	if term := strings.TrimSpace(q.NameContains); term != "" {
		pred = append(pred, sq.ILike{"d.name": "%" + escapeLike(term) + "%"})
	}
	return pred, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside an ILIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// MarkDeleted stamps deleted_at on a live row.
func (r *DocumentPostgres) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	q, args, err := qb().Update("documents").
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
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

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	q, args, err := qb().Delete("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// ListDeleted returns soft-deleted rows awaiting storage cleanup.
func (r *DocumentPostgres) ListDeleted(ctx context.Context, limit int) ([]model.Document, error) {
	q, args, err := qb().Select(documentColumns...).
		From(documentsTable).
		LeftJoin(ownerJoin).
		Where("d.deleted_at IS NOT NULL").
		OrderBy("d.deleted_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

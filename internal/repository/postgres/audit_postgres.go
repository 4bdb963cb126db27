package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"docshare/internal/model"
	"docshare/internal/repository"
)

// AuditPostgres appends rows to audit_logs.
type AuditPostgres struct {
	db *sql.DB
}

func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

func (r *AuditPostgres) Insert(ctx context.Context, e *model.AuditEntry) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	q, args, err := qb().Insert("audit_logs").
		Columns("id", "action_type", "user_id", "resource_type", "resource_id", "details", "ip_address", "user_agent", "created_at").
		Values(e.ID, e.Action, e.UserID, e.ResourceType, e.ResourceID, string(payload), nullable(e.IPAddress), nullable(e.UserAgent), e.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

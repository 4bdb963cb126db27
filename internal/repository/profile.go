package repository

import (
	"context"

	"docshare/internal/model"
)

// ProfileRepository persists accounts.
type ProfileRepository interface {
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	SetRole(ctx context.Context, id string, role model.Role) error
}

// AuthorizedEmailRepository persists the signup allowlist.
type AuthorizedEmailRepository interface {
	// Add stores a lower-cased email. Returns ErrDuplicate if it is already listed.
	Add(ctx context.Context, e *model.AuthorizedEmail) (*model.AuthorizedEmail, error)
	// Remove deletes an entry by id. Returns sql.ErrNoRows if nothing matched.
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.AuthorizedEmail, error)
	Exists(ctx context.Context, email string) (bool, error)
}

// AuditRepository appends audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
}

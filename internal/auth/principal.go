// Package auth holds caller identity, credential hashing and token handling.
package auth

import (
	"context"

	"docshare/internal/model"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   model.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// Authenticated reports whether p identifies a user.
func (p Principal) Authenticated() bool { return p.UserID != "" }

// PrincipalOf builds the principal for a loaded profile.
func PrincipalOf(p *model.Profile) Principal {
	return Principal{UserID: p.ID, Email: p.Email, Role: p.Role}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Authenticated()
}

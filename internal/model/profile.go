package model

import "time"

// Role is the authorization level of a profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Profile is a registered account.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the profile holds the admin role.
func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// AuthorizedEmail is an entry of the signup allowlist.
type AuthorizedEmail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	AddedBy   *string   `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

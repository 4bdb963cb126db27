package model

import "time"

// Visibility controls who may read a document besides its owner.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is one of the known visibilities.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Document is the metadata record of a stored file.
// This is a pure domain model with no database-specific dependencies or tags.
// OwnerEmail and OwnerName are filled when the document is read through a join.
type Document struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StoragePath string     `json:"file_path"`
	Size        int64      `json:"file_size"`
	ContentType string     `json:"file_type"`
	Visibility  Visibility `json:"visibility"`
	OwnerID     string     `json:"user_id"`
	OwnerEmail  string     `json:"owner_email,omitempty"`
	OwnerName   *string    `json:"owner_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnedBy reports whether userID owns the document.
func (d Document) OwnedBy(userID string) bool {
	return userID != "" && d.OwnerID == userID
}

package model

import "time"

// Share is a directed edge granting SharedWithUserID read access to a private document.
type Share struct {
	ID               string    `json:"id"`
	DocumentID       string    `json:"document_id"`
	SharedByUserID   string    `json:"shared_by_user_id"`
	SharedWithUserID string    `json:"shared_with_user_id"`
	SharedWithEmail  string    `json:"shared_with_email,omitempty"`
	SharedWithName   *string   `json:"shared_with_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

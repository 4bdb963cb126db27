package model

import "time"

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       string         `json:"action_type"`
	UserID       *string        `json:"user_id,omitempty"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *string        `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

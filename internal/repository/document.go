package repository

import (
	"context"
	"time"

	"docshare/internal/model"
)

// Scope selects which documents a search may return for a viewer.
type Scope int

const (
	// ScopeOwnPrivate: private documents owned by the viewer.
	ScopeOwnPrivate Scope = iota
	// ScopePublic: every public document.
	ScopePublic
	// ScopeSharedWith: documents carrying a share edge to the viewer.
	ScopeSharedWith
	// ScopeVisible: owned by the viewer, public, or shared with the viewer.
	ScopeVisible
	// ScopeAll: every live document regardless of owner.
	ScopeAll
)

// SearchQuery describes one page of a document search.
type SearchQuery struct {
	Scope        Scope
	ViewerID     string
	NameContains string
	Page         PageQuery
}

// DocumentRepository defines data access for documents using SQL queries only.
// Soft-deleted rows are invisible to every read except ListDeleted.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a live document with its owner's email and name.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Search returns one page of documents matching q, newest first, and the total match count.
	Search(ctx context.Context, q SearchQuery) (*PageResult[model.Document], error)

	// MarkDeleted hides the document from every read. Returns sql.ErrNoRows if no live row matched.
	MarkDeleted(ctx context.Context, id string, at time.Time) error

	// Delete removes the row; share edges go with it. A missing row is not an error.
	Delete(ctx context.Context, id string) error

	// ListDeleted returns up to limit soft-deleted documents, oldest deletion first.
	ListDeleted(ctx context.Context, limit int) ([]model.Document, error)
}

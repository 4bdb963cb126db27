package repository

import (
	"context"

	"docshare/internal/model"
)

// ShareRepository persists share edges.
type ShareRepository interface {
	// Create inserts an edge. Returns ErrDuplicate when the pair already exists.
	Create(ctx context.Context, s *model.Share) (*model.Share, error)

	// Delete removes the edge for the pair; a missing edge is not an error.
	Delete(ctx context.Context, documentID, sharedWithUserID string) error

	// Exists reports whether the document is shared with the user.
	Exists(ctx context.Context, documentID, userID string) (bool, error)

	// ListByDocument returns the edges of a document with recipient email and name, oldest first.
	ListByDocument(ctx context.Context, documentID string) ([]model.Share, error)
}

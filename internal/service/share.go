package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/repository"
)

// ShareService grants and revokes read access to private documents.
type ShareService interface {
	// Share grants the user registered under email read access to a private
	// document owned by actor and returns the document's current shares.
	Share(ctx context.Context, actor auth.Principal, documentID, email string) ([]model.Share, error)

	// Unshare revokes access for userID. Revoking a grant that does not exist succeeds.
	Unshare(ctx context.Context, actor auth.Principal, documentID, userID string) error

	// List returns the shares of a document owned by actor; admins may list any document.
	List(ctx context.Context, actor auth.Principal, documentID string) ([]model.Share, error)
}

type shareService struct {
	docs     repository.DocumentRepository
	shares   repository.ShareRepository
	profiles repository.ProfileRepository
	audit    audit.Recorder
	now      func() time.Time
}

func NewShareService(
	docs repository.DocumentRepository,
	shares repository.ShareRepository,
	profiles repository.ProfileRepository,
	rec audit.Recorder,
) ShareService {
	return &shareService{docs: docs, shares: shares, profiles: profiles, audit: rec, now: time.Now}
}

// owned loads a document and requires actor to own it. With allowAdmin an
// admin passes as well.
func (s *shareService) owned(ctx context.Context, actor auth.Principal, documentID string, allowAdmin bool) (*model.Document, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if documentID == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.OwnedBy(actor.UserID) || (allowAdmin && actor.IsAdmin()) {
		return doc, nil
	}
	return nil, ErrPermissionDenied
}

func (s *shareService) Share(ctx context.Context, actor auth.Principal, documentID, email string) ([]model.Share, error) {
	doc, err := s.owned(ctx, actor, documentID, false)
	if err != nil {
		return nil, err
	}
	if doc.Visibility != model.VisibilityPrivate {
		return nil, ErrNotPrivate
	}

	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, invalid("INVALID_EMAIL", "Please enter a valid email address")
	}
	target, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if target.ID == actor.UserID {
		return nil, ErrShareWithSelf
	}

	_, err = s.shares.Create(ctx, &model.Share{
		ID:               uuid.NewString(),
		DocumentID:       doc.ID,
		SharedByUserID:   actor.UserID,
		SharedWithUserID: target.ID,
		CreatedAt:        s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyShared
		}
		return nil, fmt.Errorf("create share: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionDocumentShare,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceDocument,
		ResourceID:   doc.ID,
		Details: map[string]any{
			"documentId":       doc.ID,
			"fileName":         doc.Name,
			"sharedWithUserId": target.ID,
		},
	})

	return s.list(ctx, doc.ID)
}

func (s *shareService) Unshare(ctx context.Context, actor auth.Principal, documentID, userID string) error {
	doc, err := s.owned(ctx, actor, documentID, true)
	if err != nil {
		return err
	}
	if userID == "" {
		return ErrIDRequired
	}
	if err := s.shares.Delete(ctx, doc.ID, userID); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionDocumentUnshare,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceDocument,
		ResourceID:   doc.ID,
		Details: map[string]any{
			"documentId":         doc.ID,
			"unsharedFromUserId": userID,
		},
	})
	return nil
}

func (s *shareService) List(ctx context.Context, actor auth.Principal, documentID string) ([]model.Share, error) {
	doc, err := s.owned(ctx, actor, documentID, true)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, doc.ID)
}

func (s *shareService) list(ctx context.Context, documentID string) ([]model.Share, error) {
	items, err := s.shares.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	if items == nil {
		items = []model.Share{}
	}
	return items, nil
}

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

// AllowlistService manages the emails permitted to sign up. Every method
// requires an admin caller.
type AllowlistService interface {
	List(ctx context.Context, actor auth.Principal) ([]model.AuthorizedEmail, error)
	Add(ctx context.Context, actor auth.Principal, email string) (*model.AuthorizedEmail, error)
	Remove(ctx context.Context, actor auth.Principal, id string) error
	IsAuthorized(ctx context.Context, actor auth.Principal, email string) (bool, error)
}

type allowlistService struct {
	repo  repository.AuthorizedEmailRepository
	audit audit.Recorder
	now   func() time.Time
}

func NewAllowlistService(repo repository.AuthorizedEmailRepository, rec audit.Recorder) AllowlistService {
	return &allowlistService{repo: repo, audit: rec, now: time.Now}
}

func requireAdmin(actor auth.Principal) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

func (s *allowlistService) List(ctx context.Context, actor auth.Principal) ([]model.AuthorizedEmail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authorized emails: %w", err)
	}
	if items == nil {
		items = []model.AuthorizedEmail{}
	}
	return items, nil
}

func (s *allowlistService) Add(ctx context.Context, actor auth.Principal, email string) (*model.AuthorizedEmail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, invalid("INVALID_EMAIL", "Please enter a valid email address")
	}

	addedBy := actor.UserID
	e, err := s.repo.Add(ctx, &model.AuthorizedEmail{
		ID:      uuid.NewString(),
		Email:   email,
		AddedBy:   &addedBy,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyAuthorized
		}
		return nil, fmt.Errorf("add authorized email: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionAuthorizedEmailAdd,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceAuthorizedEmail,
		ResourceID:   e.ID,
		Details:      map[string]any{"email": auth.MaskEmail(email)},
	})
	return e, nil
}

func (s *allowlistService) Remove(ctx context.Context, actor auth.Principal, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.Remove(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("remove authorized email: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionAuthorizedEmailRemove,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceAuthorizedEmail,
		ResourceID:   id,
	})
	return nil
}

func (s *allowlistService) IsAuthorized(ctx context.Context, actor auth.Principal, email string) (bool, error) {
	if err := requireAdmin(actor); err != nil {
		return false, err
	}
	return s.repo.Exists(ctx, auth.NormalizeEmail(email))
}

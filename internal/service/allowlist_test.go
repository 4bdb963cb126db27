package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/repository"
	repoMocks "docshare/internal/repository/mocks"
)

func TestAllowlistService_AdminOnly(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockAuthorizedEmailRepository)
	svc := NewAllowlistService(repo, anyAudit())

	_, err := svc.List(ctx, other)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Add(ctx, other, "x@example.com")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = svc.Remove(ctx, auth.Principal{}, "ae-1")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	repo.AssertNotCalled(t, "List", mock.Anything)
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestAllowlistService_Add(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		email      string
		setupMocks func(repo *repoMocks.MockAuthorizedEmailRepository)
		wantErr    error
		wantCode   string
	}{
		{
			name:  "adds a normalized address",
			email: "  New.User@Example.COM ",
			setupMocks: func(repo *repoMocks.MockAuthorizedEmailRepository) {
				repo.On("Add", ctx, mock.MatchedBy(func(e *model.AuthorizedEmail) bool {
					return e.Email == "new.user@example.com" && e.AddedBy != nil && *e.AddedBy == admin.UserID &&
						!e.CreatedAt.IsZero() && e.CreatedAt.Location() == time.UTC
				})).Return(&model.AuthorizedEmail{ID: "ae-1", Email: "new.user@example.com"}, nil)
			},
		},
		{
			name:     "invalid address",
			email:    "nope",
			wantCode: "INVALID_EMAIL",
		},
		{
			name:  "duplicate",
			email: "dup@example.com",
			setupMocks: func(repo *repoMocks.MockAuthorizedEmailRepository) {
				repo.On("Add", ctx, mock.Anything).Return(nil, repository.ErrDuplicate)
			},
			wantErr: ErrAlreadyAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMocks.MockAuthorizedEmailRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(repo)
			}
			rec := anyAudit()

			got, err := NewAllowlistService(repo, rec).Add(ctx, admin, tt.email)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != "":
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tt.wantCode, ve.Code)
			default:
				require.NoError(t, err)
				assert.Equal(t, "ae-1", got.ID)
				e := lastEvent(rec)
				assert.Equal(t, audit.ActionAuthorizedEmailAdd, e.Action)
				assert.Equal(t, "n***@example.com", e.Details["email"])
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestAllowlistService_Remove(t *testing.T) {
	ctx := context.Background()

	repo := new(repoMocks.MockAuthorizedEmailRepository)
	repo.On("Remove", ctx, "ae-1").Return(nil)
	repo.On("Remove", ctx, "missing").Return(sql.ErrNoRows)
	rec := anyAudit()
	svc := NewAllowlistService(repo, rec)

	assert.NoError(t, svc.Remove(ctx, admin, "ae-1"))
	assert.Equal(t, []string{audit.ActionAuthorizedEmailRemove}, recordedActions(rec))

	assert.ErrorIs(t, svc.Remove(ctx, admin, "missing"), ErrEntryNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, admin, ""), ErrIDRequired)
}

func TestAllowlistService_ListAndCheck(t *testing.T) {
	ctx := context.Background()

	repo := new(repoMocks.MockAuthorizedEmailRepository)
	repo.On("List", ctx).Return(nil, nil)
	repo.On("Exists", ctx, "someone@example.com").Return(true, nil)
	svc := NewAllowlistService(repo, anyAudit())

	items, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.NotNil(t, items)

	ok, err := svc.IsAuthorized(ctx, admin, "SomeOne@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

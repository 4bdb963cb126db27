package mocks

import (
	"context"

	"docshare/internal/auth"
	"docshare/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) Share(ctx context.Context, actor auth.Principal, documentID, email string) ([]model.Share, error) {
	args := m.Called(ctx, actor, documentID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Share), args.Error(1)
}

func (m *MockShareService) Unshare(ctx context.Context, actor auth.Principal, documentID, userID string) error {
	args := m.Called(ctx, actor, documentID, userID)
	return args.Error(0)
}

func (m *MockShareService) List(ctx context.Context, actor auth.Principal, documentID string) ([]model.Share, error) {
	args := m.Called(ctx, actor, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Share), args.Error(1)
}

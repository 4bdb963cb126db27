package mocks

import (
	"context"

	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) SignUp(ctx context.Context, in service.SignUpInput) (*model.Profile, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockAccountService) SignIn(ctx context.Context, email, password string) (*service.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Session), args.Error(1)
}

func (m *MockAccountService) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAccountService) ResetPassword(ctx context.Context, token, password string) error {
	args := m.Called(ctx, token, password)
	return args.Error(0)
}

func (m *MockAccountService) Me(ctx context.Context, actor auth.Principal) (*model.Profile, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockAccountService) SetRole(ctx context.Context, actor auth.Principal, userID string, role model.Role) (*model.Profile, error) {
	args := m.Called(ctx, actor, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

type MockAllowlistService struct {
	mock.Mock
}

func (m *MockAllowlistService) List(ctx context.Context, actor auth.Principal) ([]model.AuthorizedEmail, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuthorizedEmail), args.Error(1)
}

func (m *MockAllowlistService) Add(ctx context.Context, actor auth.Principal, email string) (*model.AuthorizedEmail, error) {
	args := m.Called(ctx, actor, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthorizedEmail), args.Error(1)
}

func (m *MockAllowlistService) Remove(ctx context.Context, actor auth.Principal, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockAllowlistService) IsAuthorized(ctx context.Context, actor auth.Principal, email string) (bool, error) {
	args := m.Called(ctx, actor, email)
	return args.Bool(0), args.Error(1)
}

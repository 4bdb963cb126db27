package mocks

import (
	"context"

	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, actor auth.Principal, in service.UploadInput) (*model.Document, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Search(ctx context.Context, actor auth.Principal, p service.SearchParams) (*service.SearchResult, error) {
	args := m.Called(ctx, actor, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, actor auth.Principal, id string) (*model.Document, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, actor auth.Principal, id string) (*service.Download, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockDocumentService) SignedLink(ctx context.Context, actor auth.Principal, id string) (*service.SignedLink, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SignedLink), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, actor auth.Principal, id string, confirmed bool) error {
	args := m.Called(ctx, actor, id, confirmed)
	return args.Error(0)
}

type MockUploadValidator struct {
	mock.Mock
}

func (m *MockUploadValidator) Validate(ctx context.Context, actor auth.Principal, req service.UploadRequest) (*service.UploadVerdict, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadVerdict), args.Error(1)
}

type MockAuthRateLimiter struct {
	mock.Mock
}

func (m *MockAuthRateLimiter) Check(ctx context.Context, ip string, req service.AuthLimitRequest) (*service.AuthLimitVerdict, error) {
	args := m.Called(ctx, ip, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthLimitVerdict), args.Error(1)
}

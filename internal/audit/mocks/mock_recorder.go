package mocks

import (
	"context"

	"docshare/internal/audit"

	"github.com/stretchr/testify/mock"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, e audit.Event) {
	m.Called(ctx, e)
}

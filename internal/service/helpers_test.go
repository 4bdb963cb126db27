package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"docshare/internal/audit"
	auditMocks "docshare/internal/audit/mocks"
	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/ratelimit"
)

var (
	owner = auth.Principal{UserID: "u-owner", Email: "owner@example.com", Role: model.RoleUser}
	other = auth.Principal{UserID: "u-other", Email: "other@example.com", Role: model.RoleUser}
	admin = auth.Principal{UserID: "u-admin", Email: "admin@example.com", Role: model.RoleAdmin}
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestLimiter returns a limiter backed by an in-memory Redis.
func newTestLimiter(t *testing.T, opts ...ratelimit.Option) *ratelimit.Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	opts = append([]ratelimit.Option{ratelimit.WithLogger(quietLogger())}, opts...)
	return ratelimit.NewLimiter(ratelimit.NewRedisCounter(rdb, "test:"), opts...)
}

type brokenCounter struct{}

func (brokenCounter) Hit(context.Context, string, time.Time, time.Duration) (int64, error) {
	return 0, errors.New("counter down")
}

// anyAudit accepts every audit event.
func anyAudit() *auditMocks.MockRecorder {
	rec := new(auditMocks.MockRecorder)
	rec.On("Record", mock.Anything, mock.Anything).Return()
	return rec
}

// recordedActions lists the actions passed to rec in call order.
func recordedActions(rec *auditMocks.MockRecorder) []string {
	var out []string
	for _, c := range rec.Calls {
		if c.Method == "Record" {
			out = append(out, c.Arguments.Get(1).(audit.Event).Action)
		}
	}
	return out
}

func lastEvent(rec *auditMocks.MockRecorder) audit.Event {
	var e audit.Event
	for _, c := range rec.Calls {
		if c.Method == "Record" {
			e = c.Arguments.Get(1).(audit.Event)
		}
	}
	return e
}

// mockValidator mirrors mocks.MockUploadValidator; that package imports this one.
type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) Validate(ctx context.Context, actor auth.Principal, req UploadRequest) (*UploadVerdict, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UploadVerdict), args.Error(1)
}

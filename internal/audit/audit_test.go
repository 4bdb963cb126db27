package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docshare/internal/model"
	repoMocks "docshare/internal/repository/mocks"
)

func TestLogger_Record(t *testing.T) {
	repo := new(repoMocks.MockAuditRepository)
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	l := NewLogger(repo, log)
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	ctx := WithOrigin(context.Background(), Origin{IP: "10.1.1.1", UserAgent: "curl/8"})

	repo.On("Insert", mock.Anything, mock.MatchedBy(func(e *model.AuditEntry) bool {
		return e.Action == ActionDocumentDelete &&
			*e.UserID == "u1" &&
			*e.ResourceID == "d1" &&
			e.IPAddress == "10.1.1.1" &&
			e.UserAgent == "curl/8" &&
			e.Details["viaAdmin"] == true &&
			e.CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	})).Return(nil).Once()

	l.Record(ctx, Event{
		Action:       ActionDocumentDelete,
		UserID:       "u1",
		ResourceType: ResourceDocument,
		ResourceID:   "d1",
		Details:      map[string]any{"viaAdmin": true},
	})

	repo.AssertExpectations(t)
	assert.Contains(t, buf.String(), "document_delete")
}

func TestLogger_RecordSwallowsErrors(t *testing.T) {
	repo := new(repoMocks.MockAuditRepository)
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	repo.On("Insert", mock.Anything, mock.MatchedBy(func(e *model.AuditEntry) bool {
		return e.UserID == nil && e.ResourceID == nil
	})).Return(errors.New("db down")).Once()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		NewLogger(repo, log).Record(cancelled, Event{Action: "auth_login", ResourceType: ResourceAuth})
	})
	repo.AssertExpectations(t)
	assert.Contains(t, buf.String(), "audit write failed")
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, Origin{}, OriginFrom(context.Background()))
	ctx := WithOrigin(context.Background(), Origin{IP: "1.2.3.4"})
	assert.Equal(t, "1.2.3.4", OriginFrom(ctx).IP)
}

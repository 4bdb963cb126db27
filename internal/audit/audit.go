// Package audit records security-relevant events. Recording never fails the
// caller: persistence errors are logged and dropped.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"docshare/internal/model"
	"docshare/internal/repository"
)

const (
	ActionDocumentUpload          = "document_upload"
	ActionDocumentDownload        = "document_download"
	ActionDocumentDelete          = "document_delete"
	ActionDocumentShare           = "document_share"
	ActionDocumentUnshare         = "document_unshare"
	ActionUploadValidationSuccess = "upload_validation_success"
	ActionUploadValidationFailed  = "upload_validation_failed"
	ActionUploadRateLimitExceeded = "upload_rate_limit_exceeded"
	ActionAuthorizedEmailAdd      = "authorized_email_add"
	ActionAuthorizedEmailRemove   = "authorized_email_remove"
	ActionRoleChange              = "role_change"
	ActionPasswordReset           = "password_reset"
)

const (
	ResourceDocument        = "document"
	ResourceAuth            = "auth"
	ResourceAuthorizedEmail = "authorized_email"
	ResourceProfile         = "profile"
)

const writeTimeout = 3 * time.Second

// Origin is where a request came from.
type Origin struct {
	IP        string
	UserAgent string
}

type originKey struct{}

func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin stored by WithOrigin, or the zero Origin.
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

// Event is one auditable action.
type Event struct {
	Action       string
	UserID       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Logger persists events to the audit repository and mirrors them to the log.
type Logger struct {
	repo repository.AuditRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewLogger(repo repository.AuditRepository, log logrus.FieldLogger) *Logger {
	return &Logger{repo: repo, log: log, now: time.Now}
}

var _ Recorder = (*Logger)(nil)

func (l *Logger) Record(ctx context.Context, e Event) {
	origin := OriginFrom(ctx)
	entry := &model.AuditEntry{
		ID:           uuid.NewString(),
		Action:       e.Action,
		UserID:       optional(e.UserID),
		ResourceType: e.ResourceType,
		ResourceID:   optional(e.ResourceID),
		Details:      e.Details,
		IPAddress:    origin.IP,
		UserAgent:    origin.UserAgent,
		CreatedAt:    l.now().UTC(),
	}

	fields := logrus.Fields{
		"component":     "audit",
		"action_type":   e.Action,
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"user_id":       e.UserID,
		"ip_address":    origin.IP,
	}

	// The request may already be finished; the write gets its own deadline.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := l.repo.Insert(wctx, entry); err != nil {
		l.log.WithFields(fields).WithError(err).Warn("audit write failed")
		return
	}
	l.log.WithFields(fields).Info("audit")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/ratelimit"
)

// UploadRequest describes a file before it is sent.
type UploadRequest struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// UploadVerdict is the outcome of a successful validation.
type UploadVerdict struct {
	Valid             bool   `json:"valid"`
	SanitizedFileName string `json:"sanitizedFileName,omitempty"`
	Error             string `json:"error,omitempty"`
}

// UploadValidator checks a prospective upload. Rejections are returned as
// *ValidationError or *RateLimitError.
type UploadValidator interface {
	Validate(ctx context.Context, actor auth.Principal, req UploadRequest) (*UploadVerdict, error)
}

// UploadPolicy bounds what may be uploaded.
type UploadPolicy struct {
	MinBytes         int64
	MaxBytes         int64
	Rule             ratelimit.Rule
	AllowedTypes     []string
	DeniedExtensions []string
}

// DefaultUploadPolicy accepts common office documents, text and images
// between 1 KiB and 50 MiB, 10 attempts per 15 minutes.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MinBytes: 1024,
		MaxBytes: 50 * 1024 * 1024,
		Rule:     ratelimit.Rule{MaxAttempts: 10, Window: 15 * time.Minute},
		AllowedTypes: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"text/plain",
			"text/csv",
			"image/jpeg",
			"image/png",
			"image/gif",
			"image/webp",
		},
		DeniedExtensions: []string{
			".exe", ".bat", ".cmd", ".com", ".pif", ".scr", ".vbs", ".js", ".jar",
			".app", ".deb", ".pkg", ".dmg", ".run", ".sh", ".ps1", ".msi",
		},
	}
}

const uploadScope = "upload"

type uploadValidator struct {
	limiter *ratelimit.Limiter
	audit   audit.Recorder
	policy  UploadPolicy
	allowed map[string]bool
	now     func() time.Time
}

func NewUploadValidator(limiter *ratelimit.Limiter, rec audit.Recorder, policy UploadPolicy) UploadValidator {
	allowed := make(map[string]bool, len(policy.AllowedTypes))
	for _, t := range policy.AllowedTypes {
		allowed[strings.ToLower(t)] = true
	}
	return &uploadValidator{
		limiter: limiter,
		audit:   rec,
		policy:  policy,
		allowed: allowed,
		now:     time.Now,
	}
}

func (v *uploadValidator) Validate(ctx context.Context, actor auth.Principal, req UploadRequest) (*UploadVerdict, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(req.FileName) == "" || req.FileSize <= 0 || strings.TrimSpace(req.FileType) == "" {
		v.rejected(ctx, actor, req, "missing_fields", nil)
		return nil, invalid("MISSING_FIELDS", "Missing required fields: fileName, fileSize, fileType")
	}

	ip := audit.OriginFrom(ctx).IP
	d, err := v.limiter.Allow(ctx, uploadScope, actor.UserID+":"+ip, v.policy.Rule)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		v.record(ctx, actor, audit.ActionUploadRateLimitExceeded, map[string]any{
			"fileName": req.FileName,
			"fileSize": req.FileSize,
			"fileType": req.FileType,
		})
		return nil, &RateLimitError{
			Message:    "Upload rate limit exceeded. Please wait before uploading more files.",
			RetryAfter: d.RetryAfter,
		}
	}

	if ext, bad := v.deniedExtension(req.FileName); bad {
		v.rejected(ctx, actor, req, "dangerous_extension", map[string]any{"extension": ext})
		return nil, invalid("FILE_TYPE_NOT_ALLOWED", "File type not allowed for security reasons")
	}
	if !v.allowed[strings.ToLower(strings.TrimSpace(req.FileType))] {
		v.rejected(ctx, actor, req, "invalid_mime_type", nil)
		return nil, invalid("UNSUPPORTED_FILE_TYPE", "Unsupported file type. Please upload documents, images, or text files only.")
	}
	if req.FileSize > v.policy.MaxBytes {
		v.rejected(ctx, actor, req, "file_too_large", nil)
		return nil, invalid("FILE_TOO_LARGE", fmt.Sprintf("File size exceeds %s limit", formatBytes(v.policy.MaxBytes)))
	}
	if req.FileSize < v.policy.MinBytes {
		v.rejected(ctx, actor, req, "file_too_small", nil)
		return nil, invalid("FILE_TOO_SMALL", fmt.Sprintf("File is too small (minimum %s)", formatBytes(v.policy.MinBytes)))
	}

	name := SanitizeFileName(req.FileName, v.now())
	v.record(ctx, actor, audit.ActionUploadValidationSuccess, map[string]any{
		"originalFileName":  req.FileName,
		"sanitizedFileName": name,
		"fileSize":          req.FileSize,
		"fileType":          req.FileType,
	})
	return &UploadVerdict{Valid: true, SanitizedFileName: name}, nil
}

// deniedExtension ignores trailing dots and spaces, which some filesystems strip.
func (v *uploadValidator) deniedExtension(name string) (string, bool) {
	lower := strings.TrimRight(strings.ToLower(name), ". ")
	for _, ext := range v.policy.DeniedExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext, true
		}
	}
	return "", false
}

func (v *uploadValidator) rejected(ctx context.Context, actor auth.Principal, req UploadRequest, reason string, extra map[string]any) {
	details := map[string]any{
		"reason":   reason,
		"fileName": req.FileName,
		"fileSize": req.FileSize,
		"fileType": req.FileType,
	}
	for k, val := range extra {
		details[k] = val
	}
	v.record(ctx, actor, audit.ActionUploadValidationFailed, details)
}

func (v *uploadValidator) record(ctx context.Context, actor auth.Principal, action string, details map[string]any) {
	v.audit.Record(ctx, audit.Event{
		Action:       action,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceDocument,
		Details:      details,
	})
}

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscoreRuns  = regexp.MustCompile(`_+`)
)

// SanitizeFileName keeps ASCII letters, digits, dot, dash and underscore,
// collapses underscore runs and trims leading and trailing underscores. A name
// with nothing left becomes file_<unix millis>.
func SanitizeFileName(name string, now time.Time) string {
	s := unsafeNameChars.ReplaceAllString(name, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" || strings.Trim(s, ".") == "" {
		return fmt.Sprintf("file_%d", now.UnixMilli())
	}
	return s
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

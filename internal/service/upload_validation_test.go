package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/ratelimit"
)

func TestUploadValidator_Validate(t *testing.T) {
	ctx := audit.WithOrigin(context.Background(), audit.Origin{IP: "10.0.0.7", UserAgent: "test"})

	tests := []struct {
		name       string
		actor      auth.Principal
		req        UploadRequest
		wantName   string
		wantCode   string
		wantErr    error
		wantMsg    string
		wantAction string
	}{
		{
			name:       "accepts and sanitizes",
			actor:      owner,
			req:        UploadRequest{FileName: "my report (final).pdf", FileSize: 2 << 20, FileType: "application/pdf"},
			wantName:   "my_report_final_.pdf",
			wantAction: audit.ActionUploadValidationSuccess,
		},
		{
			name:    "unauthenticated",
			actor:   auth.Principal{},
			req:     UploadRequest{FileName: "a.pdf", FileSize: 2048, FileType: "application/pdf"},
			wantErr: ErrUnauthenticated,
		},
		{
			name:     "missing fields",
			actor:    owner,
			req:      UploadRequest{FileName: " ", FileSize: 2048, FileType: "application/pdf"},
			wantCode: "MISSING_FIELDS",
		},
		{
			name:       "denylisted extension wins over declared type",
			actor:      owner,
			req:        UploadRequest{FileName: "virus.exe", FileSize: 2048, FileType: "application/pdf"},
			wantCode:   "FILE_TYPE_NOT_ALLOWED",
			wantAction: audit.ActionUploadValidationFailed,
		},
		{
			name:     "denylisted extension with trailing dot",
			actor:    owner,
			req:      UploadRequest{FileName: "run.SH. ", FileSize: 2048, FileType: "text/plain"},
			wantCode: "FILE_TYPE_NOT_ALLOWED",
		},
		{
			name:       "unsupported type",
			actor:      owner,
			req:        UploadRequest{FileName: "archive.zip", FileSize: 2048, FileType: "application/zip"},
			wantCode:   "UNSUPPORTED_FILE_TYPE",
			wantAction: audit.ActionUploadValidationFailed,
		},
		{
			name:     "too large",
			actor:    owner,
			req:      UploadRequest{FileName: "big.pdf", FileSize: 50<<20 + 1, FileType: "application/pdf"},
			wantCode: "FILE_TOO_LARGE",
			wantMsg:  "File size exceeds 50MB limit",
		},
		{
			name:     "too small",
			actor:    owner,
			req:      UploadRequest{FileName: "tiny.txt", FileSize: 100, FileType: "text/plain"},
			wantCode: "FILE_TOO_SMALL",
			wantMsg:  "File is too small (minimum 1KB)",
		},
		{
			name:     "type match ignores case",
			actor:    owner,
			req:      UploadRequest{FileName: "photo.PNG", FileSize: 4096, FileType: "IMAGE/PNG"},
			wantName: "photo.PNG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := anyAudit()
			v := NewUploadValidator(newTestLimiter(t), rec, DefaultUploadPolicy())

			got, err := v.Validate(ctx, tt.actor, tt.req)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.wantCode != "":
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantCode, ve.Code)
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, ve.Message)
				}
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				assert.True(t, got.Valid)
				assert.Equal(t, tt.wantName, got.SanitizedFileName)
			}

			if tt.wantAction != "" {
				assert.Equal(t, tt.wantAction, lastEvent(rec).Action)
				assert.Equal(t, tt.actor.UserID, lastEvent(rec).UserID)
			}
		})
	}
}

func TestUploadValidator_RejectionIsAudited(t *testing.T) {
	rec := anyAudit()
	v := NewUploadValidator(newTestLimiter(t), rec, DefaultUploadPolicy())

	_, err := v.Validate(context.Background(), owner, UploadRequest{FileName: "virus.exe", FileSize: 2048, FileType: "application/pdf"})
	require.Error(t, err)

	e := lastEvent(rec)
	assert.Equal(t, audit.ResourceDocument, e.ResourceType)
	assert.Equal(t, "dangerous_extension", e.Details["reason"])
	assert.Equal(t, ".exe", e.Details["extension"])
}

func TestUploadValidator_MissingFieldsIsAudited(t *testing.T) {
	rec := anyAudit()
	v := NewUploadValidator(newTestLimiter(t), rec, DefaultUploadPolicy())

	_, err := v.Validate(context.Background(), owner, UploadRequest{FileName: "report.pdf", FileType: "application/pdf"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "MISSING_FIELDS", ve.Code)

	e := lastEvent(rec)
	assert.Equal(t, audit.ActionUploadValidationFailed, e.Action)
	assert.Equal(t, "missing_fields", e.Details["reason"])
	assert.Equal(t, "report.pdf", e.Details["fileName"])
}

func TestUploadValidator_RateLimit(t *testing.T) {
	policy := DefaultUploadPolicy()
	policy.Rule = ratelimit.Rule{MaxAttempts: 2, Window: 15 * time.Minute}
	rec := anyAudit()
	v := NewUploadValidator(newTestLimiter(t), rec, policy)

	ctx := audit.WithOrigin(context.Background(), audit.Origin{IP: "10.0.0.7"})
	req := UploadRequest{FileName: "a.pdf", FileSize: 2048, FileType: "application/pdf"}

	for i := 0; i < 2; i++ {
		_, err := v.Validate(ctx, owner, req)
		require.NoError(t, err)
	}

	_, err := v.Validate(ctx, owner, req)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Greater(t, rl.RetryAfter, time.Duration(0))
	assert.Equal(t, audit.ActionUploadRateLimitExceeded, lastEvent(rec).Action)

	// Another address has its own budget.
	otherIP := audit.WithOrigin(context.Background(), audit.Origin{IP: "10.0.0.8"})
	_, err = v.Validate(otherIP, owner, req)
	assert.NoError(t, err)
}

func TestUploadValidator_CounterFailure(t *testing.T) {
	req := UploadRequest{FileName: "a.pdf", FileSize: 2048, FileType: "application/pdf"}

	open := ratelimit.NewLimiter(brokenCounter{}, ratelimit.WithFailOpen(true), ratelimit.WithLogger(quietLogger()))
	got, err := NewUploadValidator(open, anyAudit(), DefaultUploadPolicy()).Validate(context.Background(), owner, req)
	require.NoError(t, err)
	assert.True(t, got.Valid)

	closed := ratelimit.NewLimiter(brokenCounter{}, ratelimit.WithLogger(quietLogger()))
	_, err = NewUploadValidator(closed, anyAudit(), DefaultUploadPolicy()).Validate(context.Background(), owner, req)
	require.Error(t, err)
	var rl *RateLimitError
	assert.False(t, errors.As(err, &rl))
}

func TestSanitizeFileName(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report (final).pdf", "my_report_final_.pdf"},
		{"a__b--c.txt", "a_b--c.txt"},
		{"__lead and trail__", "lead_and_trail"},
		{"héllo.txt", "h_llo.txt"},
		{"", "file_1700000000000"},
		{"???", "file_1700000000000"},
		{"...", "file_1700000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in, now))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "50MB", formatBytes(50<<20))
	assert.Equal(t, "1KB", formatBytes(1024))
	assert.Equal(t, "1500 bytes", formatBytes(1500))
}

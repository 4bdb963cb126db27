package service

import (
	"errors"
	"time"
)

var (
	ErrIDRequired           = errors.New("id is required")
	ErrNotFound             = errors.New("document not found")
	ErrReaderNil            = errors.New("reader is nil")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrNotPrivate           = errors.New("only private documents can be shared")
	ErrUserNotFound         = errors.New("user not found")
	ErrShareWithSelf        = errors.New("cannot share a document with yourself")
	ErrAlreadyShared        = errors.New("document is already shared with this user")
	ErrObjectMissing        = errors.New("file is missing from storage")
	ErrEmptyPayload         = errors.New("downloaded file is empty")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailTaken           = errors.New("an account with this email already exists")
	ErrSignupNotAuthorized  = errors.New("this email is not authorized to sign up")
	ErrInvalidAccessCode    = errors.New("invalid access code")
	ErrAlreadyAuthorized    = errors.New("email is already authorized")
	ErrEntryNotFound        = errors.New("authorized email not found")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrUnknownAction        = errors.New("unknown action")
)

// ValidationError is a client input problem with a stable machine-readable code.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(code, msg string) error {
	return &ValidationError{Code: code, Message: msg}
}

// RateLimitError reports a rejected attempt and when the window reopens.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return e.Message }

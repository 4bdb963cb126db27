package handler

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docshare/internal/http/middleware"
	"docshare/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestIDFromCtx(c *fiber.Ctx) string {
	return middleware.RequestIDFrom(c)
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

type errorMapping struct {
	status int
	code   string
}

var serviceErrors = map[error]errorMapping{
	service.ErrUnauthenticated:      {fiber.StatusUnauthorized, "UNAUTHENTICATED"},
	service.ErrInvalidCredentials:   {fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
	service.ErrPermissionDenied:     {fiber.StatusForbidden, "FORBIDDEN"},
	service.ErrSignupNotAuthorized:  {fiber.StatusForbidden, "SIGNUP_NOT_AUTHORIZED"},
	service.ErrInvalidAccessCode:    {fiber.StatusForbidden, "INVALID_ACCESS_CODE"},
	service.ErrNotFound:             {fiber.StatusNotFound, "NOT_FOUND"},
	service.ErrUserNotFound:         {fiber.StatusNotFound, "USER_NOT_FOUND"},
	service.ErrEntryNotFound:        {fiber.StatusNotFound, "NOT_FOUND"},
	service.ErrObjectMissing:        {fiber.StatusNotFound, "OBJECT_MISSING"},
	service.ErrAlreadyShared:        {fiber.StatusConflict, "ALREADY_SHARED"},
	service.ErrEmailTaken:           {fiber.StatusConflict, "EMAIL_TAKEN"},
	service.ErrAlreadyAuthorized:    {fiber.StatusConflict, "ALREADY_AUTHORIZED"},
	service.ErrConfirmationRequired: {fiber.StatusPreconditionRequired, "CONFIRMATION_REQUIRED"},
	service.ErrIDRequired:           {fiber.StatusBadRequest, "INVALID_ID"},
	service.ErrReaderNil:            {fiber.StatusBadRequest, "FILE_REQUIRED"},
	service.ErrInvalidFilter:        {fiber.StatusBadRequest, "INVALID_FILTER"},
	service.ErrNotPrivate:           {fiber.StatusBadRequest, "NOT_PRIVATE"},
	service.ErrShareWithSelf:        {fiber.StatusBadRequest, "SHARE_WITH_SELF"},
	service.ErrInvalidToken:         {fiber.StatusBadRequest, "INVALID_TOKEN"},
	service.ErrUnknownAction:        {fiber.StatusBadRequest, "INVALID_ACTION"},
	service.ErrEmptyPayload:         {fiber.StatusBadGateway, "EMPTY_FILE"},
	service.ErrStorageUnavailable:   {fiber.StatusBadGateway, "STORAGE_UNAVAILABLE"},
}

// writeServiceError maps a service error to its status and code. Unknown
// errors become a 500 whose cause is only kept for the access log.
func writeServiceError(c *fiber.Ctx, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return writeError(c, fiber.StatusBadRequest, ve.Code, ve.Message)
	}
	var rl *service.RateLimitError
	if errors.As(err, &rl) {
		setRetryAfter(c, rl)
		return writeError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", rl.Message)
	}
	for target, m := range serviceErrors {
		if errors.Is(err, target) {
			if m.status >= fiber.StatusInternalServerError {
				c.Locals(middleware.ErrorLocalKey, err.Error())
			}
			return writeError(c, m.status, m.code, target.Error())
		}
	}
	c.Locals(middleware.ErrorLocalKey, err.Error())
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func setRetryAfter(c *fiber.Ctx, rl *service.RateLimitError) {
	if rl.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		} else {
			c.Locals(middleware.ErrorLocalKey, err.Error())
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHENTICATED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}

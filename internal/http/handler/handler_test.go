package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/service"
	serviceMocks "docshare/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	owner = auth.Principal{UserID: "u-owner", Email: "owner@example.com", Role: model.RoleUser}
	admin = auth.Principal{UserID: "u-admin", Email: "admin@example.com", Role: model.RoleAdmin}
)

// as stands in for the bearer-token middleware.
func as(p auth.Principal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(auth.WithPrincipal(c.UserContext(), p))
		return c.Next()
	}
}

func newApp(p auth.Principal) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	if p.Authenticated() {
		app.Use(as(p))
	}
	return app
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func jsonRequest(method, target string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(owner)
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &service.SearchResult{
			Documents:   []model.Document{{ID: uuid.NewString(), Name: "report.pdf"}},
			TotalCount:  1,
			TotalPages:  1,
			CurrentPage: 2,
		}
		params := service.SearchParams{Filter: service.FilterShared, Term: "rep", Page: 2, Limit: 5}
		mockSvc.On("Search", mock.Anything, owner, params).Return(expected, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?filter=shared&search=rep&page=2&limit=5", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.SearchResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Len(t, result.Documents, 1)
		assert.Equal(t, 1, result.TotalCount)
		assert.Equal(t, 2, result.CurrentPage)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
	})

	t.Run("unknown filter", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, owner, mock.Anything).
			Return(&service.SearchResult{Documents: []model.Document{}}, service.ErrInvalidFilter).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?filter=bogus", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_FILTER", decodeError(t, resp).Error.Code)
	})

	t.Run("admin filter denied", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, owner, mock.Anything).
			Return(&service.SearchResult{Documents: []model.Document{}}, service.ErrPermissionDenied).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?filter=admin_all", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, owner, mock.Anything).Return(nil, errors.New("service error")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "service error")
	})
}

func multipartUpload(t *testing.T, name, visibility string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = part.Write(content)
	if visibility != "" {
		require.NoError(t, writer.WriteField("visibility", visibility))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(owner)
	app.Post("/documents", UploadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &model.Document{ID: uuid.NewString(), Name: "test.txt", Visibility: model.VisibilityPublic}
		mockSvc.On("Upload", mock.Anything, owner, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.FileName == "test.txt" && in.Visibility == model.VisibilityPublic && in.Size == 11
		})).Return(expected, nil).Once()

		resp, err := app.Test(multipartUpload(t, "test.txt", "public", []byte("hello world")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, expected.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("rejected by validation", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, owner, mock.Anything).
			Return(nil, &service.ValidationError{Code: "FILE_TYPE_NOT_ALLOWED", Message: "File type not allowed for security reasons"}).Once()

		resp, err := app.Test(multipartUpload(t, "run.exe", "", []byte("MZ")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_TYPE_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, owner, mock.Anything).
			Return(nil, &service.RateLimitError{Message: "slow down", RetryAfter: 1500 * time.Millisecond}).Once()

		resp, err := app.Test(multipartUpload(t, "a.txt", "", []byte("x")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("Retry-After"))
		assert.Equal(t, "RATE_LIMITED", decodeError(t, resp).Error.Code)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(owner)
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, owner, id).Return(&model.Document{ID: id, Name: "test.txt"}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, owner, id).Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(owner)
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))

	t.Run("streams attachment", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Download", mock.Anything, owner, id).Return(&service.Download{
			Document:    model.Document{ID: id, Name: "report.pdf"},
			Body:        io.NopCloser(strings.NewReader("%PDF-1.7")),
			ContentType: "application/pdf",
			Size:        8,
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="report.pdf"`)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7", string(got))
	})

	t.Run("missing object", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Download", mock.Anything, owner, id).Return(nil, service.ErrObjectMissing).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "OBJECT_MISSING", decodeError(t, resp).Error.Code)
	})

	t.Run("empty payload", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Download", mock.Anything, owner, id).Return(nil, service.ErrEmptyPayload).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "EMPTY_FILE", decodeError(t, resp).Error.Code)
	})
}

func TestDocumentLink(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(owner)
	app.Get("/documents/:id/link", DocumentLink(mockSvc))

	id := uuid.NewString()
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mockSvc.On("SignedLink", mock.Anything, owner, id).
		Return(&service.SignedLink{URL: "https://objects.example.com/signed", ExpiresAt: exp}, nil).Once()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/link", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var link service.SignedLink
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&link))
	assert.Equal(t, "https://objects.example.com/signed", link.URL)
	assert.True(t, exp.Equal(link.ExpiresAt))
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(owner)
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, owner, id, true).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id+"?confirm=true", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("confirmation required", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, owner, id, false).Return(service.ErrConfirmationRequired).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)
		assert.Equal(t, "CONFIRMATION_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("not owner", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, owner, id, true).Return(service.ErrPermissionDenied).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id+"?confirm=true", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Error.Code)
	})
}

func TestShareHandlers(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := newApp(owner)
	app.Get("/documents/:id/shares", ListShares(mockSvc))
	app.Post("/documents/:id/shares", ShareDocument(mockSvc))
	app.Delete("/documents/:id/shares/:userId", UnshareDocument(mockSvc))

	id := uuid.NewString()

	t.Run("share", func(t *testing.T) {
		shares := []model.Share{{ID: uuid.NewString(), DocumentID: id, SharedWithUserID: "u-other"}}
		mockSvc.On("Share", mock.Anything, owner, id, "other@example.com").Return(shares, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/shares", shareRequest{Email: "other@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got []model.Share
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Len(t, got, 1)
	})

	t.Run("already shared", func(t *testing.T) {
		mockSvc.On("Share", mock.Anything, owner, id, "other@example.com").Return(nil, service.ErrAlreadyShared).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/shares", shareRequest{Email: "other@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "ALREADY_SHARED", decodeError(t, resp).Error.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		mockSvc.On("Share", mock.Anything, owner, id, "ghost@example.com").Return(nil, service.ErrUserNotFound).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/shares", shareRequest{Email: "ghost@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "USER_NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("list", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, owner, id).Return([]model.Share{}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/shares", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `[]`, string(raw))
	})

	t.Run("unshare", func(t *testing.T) {
		other := uuid.NewString()
		mockSvc.On("Unshare", mock.Anything, owner, id, other).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id+"/shares/"+other, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("unshare with malformed user id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id+"/shares/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_USER_ID", decodeError(t, resp).Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestValidateUpload(t *testing.T) {
	validator := new(serviceMocks.MockUploadValidator)
	req := service.UploadRequest{FileName: "report.pdf", FileSize: 2048, FileType: "application/pdf"}

	t.Run("valid", func(t *testing.T) {
		app := newApp(owner)
		app.Post("/functions/validate-upload", ValidateUpload(validator))
		validator.On("Validate", mock.Anything, owner, req).
			Return(&service.UploadVerdict{Valid: true, SanitizedFileName: "report.pdf"}, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/validate-upload", req))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"valid":true,"sanitizedFileName":"report.pdf"}`, string(raw))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		app := newApp(auth.Principal{})
		app.Post("/functions/validate-upload", ValidateUpload(validator))
		validator.On("Validate", mock.Anything, auth.Principal{}, req).Return(nil, service.ErrUnauthenticated).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/validate-upload", req))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"valid":false,"error":"Unauthorized"}`, string(raw))
	})

	t.Run("invalid type", func(t *testing.T) {
		app := newApp(owner)
		app.Post("/functions/validate-upload", ValidateUpload(validator))
		validator.On("Validate", mock.Anything, owner, req).
			Return(nil, &service.ValidationError{Code: "UNSUPPORTED_FILE_TYPE", Message: "Unsupported file type"}).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/validate-upload", req))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"valid":false,"error":"Unsupported file type"}`, string(raw))
	})

	t.Run("rate limited", func(t *testing.T) {
		app := newApp(owner)
		app.Post("/functions/validate-upload", ValidateUpload(validator))
		validator.On("Validate", mock.Anything, owner, req).
			Return(nil, &service.RateLimitError{Message: "Upload rate limit exceeded.", RetryAfter: time.Minute}).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/validate-upload", req))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	})

	validator.AssertExpectations(t)
}

func TestAuthRateLimit(t *testing.T) {
	limiter := new(serviceMocks.MockAuthRateLimiter)
	app := newApp(auth.Principal{})
	app.Post("/functions/auth-rate-limit", AuthRateLimit(limiter))

	t.Run("allowed", func(t *testing.T) {
		req := service.AuthLimitRequest{Action: service.AuthLogin, Email: "a@example.com"}
		limiter.On("Check", mock.Anything, mock.Anything, req).
			Return(&service.AuthLimitVerdict{Allowed: true, Message: "Action allowed"}, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/auth-rate-limit", req))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"allowed":true,"message":"Action allowed"}`, string(raw))
	})

	t.Run("blocked", func(t *testing.T) {
		req := service.AuthLimitRequest{Action: service.AuthSignup}
		limiter.On("Check", mock.Anything, mock.Anything, req).Return(&service.AuthLimitVerdict{
			Error:      "Too many signup attempts. Try again in 60 minutes.",
			RetryAfter: 30 * time.Minute,
		}, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/auth-rate-limit", req))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "1800", resp.Header.Get("Retry-After"))
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"allowed":false,"error":"Too many signup attempts. Try again in 60 minutes."}`, string(raw))
	})

	t.Run("unknown action", func(t *testing.T) {
		req := service.AuthLimitRequest{Action: "logout"}
		limiter.On("Check", mock.Anything, mock.Anything, req).Return(nil, service.ErrUnknownAction).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/auth-rate-limit", req))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	limiter.AssertExpectations(t)
}

func TestAccountHandlers(t *testing.T) {
	accounts := new(serviceMocks.MockAccountService)
	app := newApp(auth.Principal{})
	app.Post("/auth/signup", SignUp(accounts))
	app.Post("/auth/login", Login(accounts))
	app.Post("/auth/reset-password", RequestPasswordReset(accounts))
	app.Post("/auth/reset-password/confirm", ConfirmPasswordReset(accounts))

	t.Run("signup", func(t *testing.T) {
		in := service.SignUpInput{Email: "new@example.com", Password: "Str0ng!pass", AccessCode: "code"}
		accounts.On("SignUp", mock.Anything, in).Return(&model.Profile{ID: "u-new", Email: in.Email, Role: model.RoleUser}, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/signup", in))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("signup not on allowlist", func(t *testing.T) {
		in := service.SignUpInput{Email: "stranger@example.com", Password: "Str0ng!pass"}
		accounts.On("SignUp", mock.Anything, in).Return(nil, service.ErrSignupNotAuthorized).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/signup", in))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "SIGNUP_NOT_AUTHORIZED", decodeError(t, resp).Error.Code)
	})

	t.Run("login", func(t *testing.T) {
		session := &service.Session{AccessToken: "tok", TokenType: "Bearer"}
		accounts.On("SignIn", mock.Anything, "a@example.com", "pw").Return(session, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/login", loginRequest{Email: "a@example.com", Password: "pw"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got service.Session
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "tok", got.AccessToken)
	})

	t.Run("login wrong password", func(t *testing.T) {
		accounts.On("SignIn", mock.Anything, "a@example.com", "bad").Return(nil, service.ErrInvalidCredentials).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/login", loginRequest{Email: "a@example.com", Password: "bad"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, resp).Error.Code)
	})

	t.Run("reset request", func(t *testing.T) {
		accounts.On("RequestPasswordReset", mock.Anything, "nobody@example.com").Return(nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/reset-password", resetRequest{Email: "nobody@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, service.ResetRequestedMessage, body["message"])
	})

	t.Run("reset confirm with bad token", func(t *testing.T) {
		accounts.On("ResetPassword", mock.Anything, "bad", "Str0ng!pass").Return(service.ErrInvalidToken).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/reset-password/confirm", resetConfirmRequest{Token: "bad", Password: "Str0ng!pass"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_TOKEN", decodeError(t, resp).Error.Code)
	})

	accounts.AssertExpectations(t)
}

func TestMe(t *testing.T) {
	accounts := new(serviceMocks.MockAccountService)
	app := newApp(admin)
	app.Get("/me", Me(accounts))

	accounts.On("Me", mock.Anything, admin).Return(&model.Profile{ID: admin.UserID, Email: admin.Email, Role: model.RoleAdmin}, nil).Once()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body meResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.IsAdmin)
	assert.Equal(t, admin.UserID, body.Profile.ID)
}

func TestAdminHandlers(t *testing.T) {
	allowlist := new(serviceMocks.MockAllowlistService)
	accounts := new(serviceMocks.MockAccountService)
	app := newApp(admin)
	app.Get("/admin/authorized-emails", ListAuthorizedEmails(allowlist))
	app.Post("/admin/authorized-emails", AddAuthorizedEmail(allowlist))
	app.Delete("/admin/authorized-emails/:id", RemoveAuthorizedEmail(allowlist))
	app.Put("/admin/users/:id/role", SetUserRole(accounts))

	t.Run("add duplicate", func(t *testing.T) {
		allowlist.On("Add", mock.Anything, admin, "dup@example.com").Return(nil, service.ErrAlreadyAuthorized).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/authorized-emails", authorizedEmailRequest{Email: "dup@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "ALREADY_AUTHORIZED", decodeError(t, resp).Error.Code)
	})

	t.Run("list", func(t *testing.T) {
		allowlist.On("List", mock.Anything, admin).Return([]model.AuthorizedEmail{{ID: "e1", Email: "a@example.com"}}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/authorized-emails", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("remove", func(t *testing.T) {
		id := uuid.NewString()
		allowlist.On("Remove", mock.Anything, admin, id).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/admin/authorized-emails/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("set role", func(t *testing.T) {
		id := uuid.NewString()
		accounts.On("SetRole", mock.Anything, admin, id, model.RoleAdmin).
			Return(&model.Profile{ID: id, Role: model.RoleAdmin}, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPut, "/admin/users/"+id+"/role", roleRequest{Role: model.RoleAdmin}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	allowlist.AssertExpectations(t)
	accounts.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	deny := func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusUnauthorized) }
	RegisterRoutes(app, nil, Services{
		Documents: new(serviceMocks.MockDocumentService),
		Shares:    new(serviceMocks.MockShareService),
		Uploads:   new(serviceMocks.MockUploadValidator),
		AuthLimit: new(serviceMocks.MockAuthRateLimiter),
		Accounts:  new(serviceMocks.MockAccountService),
		Allowlist: new(serviceMocks.MockAllowlistService),
	}, deny)

	t.Run("not found route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("documents require auth", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHENTICATED", decodeError(t, resp).Error.Code)
	})

	t.Run("admin requires auth", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/authorized-emails", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("validate-upload rejects in verdict shape", func(t *testing.T) {
		body := service.UploadRequest{FileName: "report.pdf", FileSize: 2048, FileType: "application/pdf"}
		resp, err := app.Test(jsonRequest(http.MethodPost, "/functions/validate-upload", body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"valid":false,"error":"Unauthorized"}`, string(raw))
	})
}

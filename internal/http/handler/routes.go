package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docshare/internal/service"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Documents service.DocumentService
	Shares    service.ShareService
	Uploads   service.UploadValidator
	AuthLimit service.AuthRateLimiter
	Accounts  service.AccountService
	Allowlist service.AllowlistService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Routes
// registered after authMW require a bearer token.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc Services, authMW fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/auth/signup", SignUp(svc.Accounts))
	app.Post("/auth/login", Login(svc.Accounts))
	app.Post("/auth/reset-password", RequestPasswordReset(svc.Accounts))
	app.Post("/auth/reset-password/confirm", ConfirmPasswordReset(svc.Accounts))

	fn := app.Group("/functions")
	fn.Post("/auth-rate-limit", AuthRateLimit(svc.AuthLimit))
	fn.Post("/validate-upload", VerdictAuth(authMW), ValidateUpload(svc.Uploads))

	app.Get("/me", authMW, Me(svc.Accounts))

	docs := app.Group("/documents", authMW)
	docs.Get("/", ListDocuments(svc.Documents))
	docs.Post("/", UploadDocument(svc.Documents))
	docs.Get("/:id", GetDocument(svc.Documents))
	docs.Delete("/:id", DeleteDocument(svc.Documents))
	docs.Get("/:id/download", DownloadDocument(svc.Documents))
	docs.Get("/:id/link", DocumentLink(svc.Documents))
	docs.Get("/:id/shares", ListShares(svc.Shares))
	docs.Post("/:id/shares", ShareDocument(svc.Shares))
	docs.Delete("/:id/shares/:userId", UnshareDocument(svc.Shares))

	admin := app.Group("/admin", authMW)
	admin.Get("/authorized-emails", ListAuthorizedEmails(svc.Allowlist))
	admin.Post("/authorized-emails", AddAuthorizedEmail(svc.Allowlist))
	admin.Delete("/authorized-emails/:id", RemoveAuthorizedEmail(svc.Allowlist))
	admin.Put("/users/:id/role", SetUserRole(svc.Accounts))
}

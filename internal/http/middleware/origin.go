package middleware

import (
	"github.com/gofiber/fiber/v2"

	"docshare/internal/audit"
)

// Origin records the client address and user agent for audit entries and
// per-IP rate limits. The address honors the app's ProxyHeader setting.
func Origin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(audit.WithOrigin(c.UserContext(), audit.Origin{
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}))
		return c.Next()
	}
}

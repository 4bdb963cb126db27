package middleware

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docshare/internal/auth"
	"docshare/internal/repository"
)

// RequireAuth accepts a session bearer token, reloads the profile so role
// changes apply immediately, and puts the caller's Principal in the request
// context. Anything else is answered with 401.
func RequireAuth(tokens *auth.TokenManager, profiles repository.ProfileRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Parse(raw, auth.PurposeSession)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		p, err := profiles.FindByID(c.UserContext(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fiber.NewError(fiber.StatusUnauthorized, "unknown user")
			}
			return err
		}

		c.SetUserContext(auth.WithPrincipal(c.UserContext(), auth.PrincipalOf(p)))
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

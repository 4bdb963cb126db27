package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docshare/internal/audit"
	"docshare/internal/http/middleware"
	"docshare/internal/service"
)

// ValidateUpload godoc
// @Summary  Validate a file before upload
// @Tags     functions
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body     service.UploadRequest true "file description"
// @Success  200  {object} service.UploadVerdict
// @Failure  400  {object} service.UploadVerdict
// @Failure  401  {object} service.UploadVerdict
// @Failure  429  {object} service.UploadVerdict
// @Router   /functions/validate-upload [post]
func ValidateUpload(v service.UploadValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.UploadRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(service.UploadVerdict{Error: "Invalid request body"})
		}

		verdict, err := v.Validate(c.UserContext(), actor(c), req)
		if err == nil {
			return c.JSON(verdict)
		}

		var (
			ve *service.ValidationError
			rl *service.RateLimitError
		)
		switch {
		case errors.Is(err, service.ErrUnauthenticated):
			return c.Status(fiber.StatusUnauthorized).JSON(service.UploadVerdict{Error: "Unauthorized"})
		case errors.As(err, &rl):
			setRetryAfter(c, rl)
			return c.Status(fiber.StatusTooManyRequests).JSON(service.UploadVerdict{Error: rl.Message})
		case errors.As(err, &ve):
			return c.Status(fiber.StatusBadRequest).JSON(service.UploadVerdict{Error: ve.Message})
		default:
			c.Locals(middleware.ErrorLocalKey, err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(service.UploadVerdict{Error: "Internal server error"})
		}
	}
}

// VerdictAuth runs authMW in front of ValidateUpload and reports a rejected
// token as an UploadVerdict instead of the error envelope.
func VerdictAuth(authMW fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := authMW(c)
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusUnauthorized {
			return c.Status(fiber.StatusUnauthorized).JSON(service.UploadVerdict{Error: "Unauthorized"})
		}
		return err
	}
}

// AuthRateLimit godoc
// @Summary  Count an authentication attempt
// @Tags     functions
// @Accept   json
// @Produce  json
// @Param    body body     service.AuthLimitRequest true "action and optional email"
// @Success  200  {object} service.AuthLimitVerdict
// @Failure  400  {object} service.AuthLimitVerdict
// @Failure  429  {object} service.AuthLimitVerdict
// @Router   /functions/auth-rate-limit [post]
func AuthRateLimit(limits service.AuthRateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.AuthLimitRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(service.AuthLimitVerdict{Error: "Invalid request body"})
		}

		verdict, err := limits.Check(c.UserContext(), audit.OriginFrom(c.UserContext()).IP, req)
		if err != nil {
			if errors.Is(err, service.ErrUnknownAction) {
				return c.Status(fiber.StatusBadRequest).JSON(service.AuthLimitVerdict{Error: "Invalid action"})
			}
			c.Locals(middleware.ErrorLocalKey, err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(service.AuthLimitVerdict{Error: "Internal server error"})
		}
		if !verdict.Allowed {
			setRetryAfter(c, &service.RateLimitError{Message: verdict.Error, RetryAfter: verdict.RetryAfter})
			return c.Status(fiber.StatusTooManyRequests).JSON(verdict)
		}
		return c.JSON(verdict)
	}
}

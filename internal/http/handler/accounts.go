package handler

import (
	"github.com/gofiber/fiber/v2"

	"docshare/internal/model"
	"docshare/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type meResponse struct {
	Profile *model.Profile `json:"profile"`
	IsAdmin bool           `json:"isAdmin"`
}

func invalidBody(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
}

// SignUp godoc
// @Summary  Create an account
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body     service.SignUpInput true "account"
// @Success  201  {object} model.Profile
// @Failure  403  {object} errorPayload
// @Failure  409  {object} errorPayload
// @Failure  429  {object} errorPayload
// @Router   /auth/signup [post]
func SignUp(accounts service.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.SignUpInput
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
		p, err := accounts.SignUp(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// Login godoc
// @Summary  Exchange credentials for a bearer token
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body     loginRequest true "credentials"
// @Success  200  {object} service.Session
// @Failure  401  {object} errorPayload
// @Failure  429  {object} errorPayload
// @Router   /auth/login [post]
func Login(accounts service.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		s, err := accounts.SignIn(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(s)
	}
}

// RequestPasswordReset godoc
// @Summary  Request a password reset link
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body     resetRequest true "account email"
// @Success  200  {object} map[string]string
// @Failure  429  {object} errorPayload
// @Router   /auth/reset-password [post]
func RequestPasswordReset(accounts service.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req resetRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		if err := accounts.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"message": service.ResetRequestedMessage})
	}
}

// ConfirmPasswordReset godoc
// @Summary  Set a new password with a reset token
// @Tags     auth
// @Accept   json
// @Param    body body resetConfirmRequest true "token and new password"
// @Success  204
// @Failure  400 {object} errorPayload
// @Router   /auth/reset-password/confirm [post]
func ConfirmPasswordReset(accounts service.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req resetConfirmRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		if err := accounts.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Me godoc
// @Summary  Current profile
// @Tags     auth
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} meResponse
// @Failure  401 {object} errorPayload
// @Router   /me [get]
func Me(accounts service.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := accounts.Me(c.UserContext(), actor(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(meResponse{Profile: p, IsAdmin: p.IsAdmin()})
	}
}

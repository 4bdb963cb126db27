package handler

import (
	"github.com/gofiber/fiber/v2"

	"docshare/internal/model"
	"docshare/internal/service"
)

type authorizedEmailRequest struct {
	Email string `json:"email"`
}

type roleRequest struct {
	Role model.Role `json:"role"`
}

// ListAuthorizedEmails godoc
// @Summary  Signup allowlist
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Success  200 {array}  model.AuthorizedEmail
// @Failure  403 {object} errorPayload
// @Router   /admin/authorized-emails [get]
func ListAuthorizedEmails(allowlist service.AllowlistService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := allowlist.List(c.UserContext(), actor(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// AddAuthorizedEmail godoc
// @Summary  Allow an email to sign up
// @Tags     admin
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body     authorizedEmailRequest true "email"
// @Success  201  {object} model.AuthorizedEmail
// @Failure  409  {object} errorPayload
// @Router   /admin/authorized-emails [post]
func AddAuthorizedEmail(allowlist service.AllowlistService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req authorizedEmailRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		e, err := allowlist.Add(c.UserContext(), actor(c), req.Email)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(e)
	}
}

// RemoveAuthorizedEmail godoc
// @Summary  Remove an allowlist entry
// @Tags     admin
// @Security BearerAuth
// @Param    id path string true "entry id"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /admin/authorized-emails/{id} [delete]
func RemoveAuthorizedEmail(allowlist service.AllowlistService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := allowlist.Remove(c.UserContext(), actor(c), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SetUserRole godoc
// @Summary  Change a user's role
// @Tags     admin
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path     string      true "user id"
// @Param    body body     roleRequest true "new role"
// @Success  200  {object} model.Profile
// @Failure  400  {object} errorPayload
// @Failure  404  {object} errorPayload
// @Router   /admin/users/{id}/role [put]
func SetUserRole(accounts service.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req roleRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		p, err := accounts.SetRole(c.UserContext(), actor(c), id, req.Role)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

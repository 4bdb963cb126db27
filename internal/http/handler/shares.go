package handler

import (
	"github.com/gofiber/fiber/v2"

	"docshare/internal/service"
)

type shareRequest struct {
	Email string `json:"email"`
}

// ListShares godoc
// @Summary  Users a document is shared with
// @Tags     shares
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {array} model.Share
// @Router   /documents/{id}/shares [get]
func ListShares(shares service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		items, err := shares.List(c.UserContext(), actor(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// ShareDocument godoc
// @Summary  Share a private document by email
// @Tags     shares
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path string       true "document id"
// @Param    body body shareRequest true "recipient"
// @Success  201 {array} model.Share
// @Failure  404 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /documents/{id}/shares [post]
func ShareDocument(shares service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req shareRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		items, err := shares.Share(c.UserContext(), actor(c), id, req.Email)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(items)
	}
}

// UnshareDocument godoc
// @Summary  Revoke a share
// @Tags     shares
// @Security BearerAuth
// @Param    id     path string true "document id"
// @Param    userId path string true "recipient user id"
// @Success  204
// @Router   /documents/{id}/shares/{userId} [delete]
func UnshareDocument(shares service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		userID, ok := pathID(c, "userId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_USER_ID", "invalid user id format")
		}
		if err := shares.Unshare(c.UserContext(), actor(c), id, userID); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

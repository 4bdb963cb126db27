package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/service"
)

// actor returns the caller placed in the request context by the auth
// middleware, or the zero Principal.
func actor(c *fiber.Ctx) auth.Principal {
	p, _ := auth.FromContext(c.UserContext())
	return p
}

// pathID returns the named route parameter if it is a UUID.
func pathID(c *fiber.Ctx, name string) (string, bool) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func queryInt(c *fiber.Ctx, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// ListDocuments godoc
// @Summary  Search documents visible to the caller
// @Tags     documents
// @Produce  json
// @Security BearerAuth
// @Param    filter query string false "all | my_private | public | shared | admin_all"
// @Param    search query string false "case-insensitive name substring"
// @Param    page   query int    false "page number, from 1"
// @Param    limit  query int    false "page size, max 100"
// @Success  200 {object} service.SearchResult
// @Failure  400 {object} errorPayload
// @Failure  403 {object} errorPayload
// @Router   /documents [get]
func ListDocuments(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, ok := queryInt(c, "page")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGE", "invalid page")
		}
		limit, ok := queryInt(c, "limit")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		res, err := docs.Search(c.UserContext(), actor(c), service.SearchParams{
			Filter: service.Filter(c.Query("filter")),
			Term:   c.Query("search"),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument godoc
// @Summary  Upload a document
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param    file       formData file   true  "document"
// @Param    visibility formData string false "private (default) or public"
// @Success  201 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  429 {object} errorPayload
// @Router   /documents [post]
func UploadDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := docs.Upload(c.UserContext(), actor(c), service.UploadInput{
			Reader:      f,
			FileName:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Visibility:  model.Visibility(c.FormValue("visibility")),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument godoc
// @Summary  Document metadata
// @Tags     documents
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {object} model.Document
// @Failure  404 {object} errorPayload
// @Router   /documents/{id} [get]
func GetDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docs.Get(c.UserContext(), actor(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument godoc
// @Summary  Download document content
// @Tags     documents
// @Produce  octet-stream
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {file} binary
// @Failure  404 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Router   /documents/{id}/download [get]
func DownloadDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		dl, err := docs.Download(c.UserContext(), actor(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Attachment(dl.Document.Name)
		if dl.ContentType != "" {
			c.Set(fiber.HeaderContentType, dl.ContentType)
		}
		size := int(dl.Size)
		if size <= 0 {
			size = -1
		}
		// fasthttp closes the body once it has been written.
		return c.SendStream(dl.Body, size)
	}
}

// DocumentLink godoc
// @Summary  Presigned download URL
// @Tags     documents
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {object} service.SignedLink
// @Failure  404 {object} errorPayload
// @Router   /documents/{id}/link [get]
func DocumentLink(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		link, err := docs.SignedLink(c.UserContext(), actor(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(link)
	}
}

// DeleteDocument godoc
// @Summary  Delete a document
// @Tags     documents
// @Security BearerAuth
// @Param    id      path  string true "document id"
// @Param    confirm query bool   true "must be true"
// @Success  204
// @Failure  403 {object} errorPayload
// @Failure  428 {object} errorPayload
// @Router   /documents/{id} [delete]
func DeleteDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		confirmed := c.QueryBool("confirm", false)
		if err := docs.Delete(c.UserContext(), actor(c), id, confirmed); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	svcfile "github.com/Alijeyrad/destek_backend/internal/service/file"
)

type FileHandler struct {
	svc svcfile.Service
}

func NewFileHandler(svc svcfile.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

func mapFileError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, svcfile.ErrStorageDisabled):
		return serviceUnavailable(c, err.Error())
	case errors.Is(err, svcfile.ErrTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, svcfile.ErrUnsupportedType),
		errors.Is(err, svcfile.ErrInvalidDataURI),
		errors.Is(err, svcfile.ErrInvalidKey):
		return badRequest(c, err.Error())
	case errors.Is(err, svcfile.ErrForbidden):
		return forbidden(c)
	default:
		return internalError(c, err)
	}
}

// POST /files/photos
// Multipart upload; returns {key, url, size, mime_type}.
func (h *FileHandler) UploadPhoto(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file field is required")
	}

	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable upload")
	}
	defer f.Close()

	result, err := h.svc.UploadPhoto(c.Context(), actor.ID, fh.Filename, fh.Header.Get(fiber.HeaderContentType), f, fh.Size)
	if err != nil {
		return mapFileError(c, err)
	}

	return created(c, result)
}

// GET /files/photos?key=tickets/...
// Returns a fresh presigned URL for a stored photo.
func (h *FileHandler) PhotoURL(c fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return badRequest(c, "key is required")
	}

	url, err := h.svc.ResolveURL(c.Context(), key)
	if err != nil {
		return mapFileError(c, err)
	}

	return ok(c, fiber.Map{"url": url})
}

// DELETE /files/photos?key=tickets/...
func (h *FileHandler) DeletePhoto(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	key := c.Query("key")
	if key == "" {
		return badRequest(c, "key is required")
	}

	if err := h.svc.DeletePhoto(c.Context(), actor, key); err != nil {
		return mapFileError(c, err)
	}

	return noContent(c)
}

package handlers

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	store *storage.Store
}

func NewFileHandler(store *storage.Store) *FileHandler {
	return &FileHandler{store: store}
}

// Upload takes a multipart "file" plus "type" (photos|audio) and returns the
// storage key.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	kind := c.FormValue("type")
	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, storage.ErrInvalidKind.Error())
	}

	ext, err := h.store.Validate(kind, fh.Filename, fh.Size)
	if err != nil {
		return uploadError(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Failed to read upload")
	}
	defer f.Close()

	key, err := h.store.Save(kind, ext, f)
	if err != nil {
		return uploadError(c, err)
	}
	slog.Info("file uploaded", "action", "upload", "kind", kind, "size", fh.Size)
	return c.Status(fiber.StatusCreated).JSON(dto.UploadResponse{Path: key})
}

func uploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return errorJSON(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, storage.ErrInvalidKind), errors.Is(err, storage.ErrExtensionNotAllowed):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	slog.Error("upload failed", "error", err.Error())
	return errorJSON(c, fiber.StatusInternalServerError, "Upload failed")
}

// Serve streams a stored file. Mounted at /api/files/*.
func (h *FileHandler) Serve(c *fiber.Ctx) error {
	rest := c.Params("*")
	path, err := h.store.Resolve(strings.Split(rest, "/"))
	switch {
	case errors.Is(err, storage.ErrInvalidPath):
		return errorJSON(c, fiber.StatusBadRequest, "Invalid path")
	case err != nil:
		return errorJSON(c, fiber.StatusNotFound, "Not found")
	}
	f, err := os.Open(path)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Not found")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errorJSON(c, fiber.StatusNotFound, "Not found")
	}
	c.Set(fiber.HeaderContentType, storage.ContentType(path))
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	// fasthttp closes f once the body has been written.
	return c.SendStream(f, int(info.Size()))
}

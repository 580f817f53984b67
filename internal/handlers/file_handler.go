package handlers

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/varunock/shareport/internal/models"
	"github.com/varunock/shareport/internal/services"
	"github.com/varunock/shareport/internal/web"
)

// FileHandler exposes the shared-folder endpoints.
type FileHandler struct {
	files *services.FileService
}

func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// Index serves the landing page.
func Index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(web.IndexHTML)
}

// Upload accepts a whole file or one numbered chunk via the multipart field
// "file". Form values "chunk" and "chunks" select the chunked path.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": services.ErrNoFile.Error()})
	}

	original := c.FormValue("filename")
	if original == "" {
		original = fileHeader.Filename
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer src.Close()

	chunkStr := c.FormValue("chunk")
	chunksStr := c.FormValue("chunks")

	var result models.UploadResult
	if chunkStr != "" && chunksStr != "" {
		index, err1 := strconv.Atoi(chunkStr)
		total, err2 := strconv.Atoi(chunksStr)
		if err1 != nil || err2 != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": services.ErrInvalidChunk.Error()})
		}
		result, err = h.files.SaveChunk(original, index, total, src)
	} else {
		result, err = h.files.SaveWhole(original, src)
	}

	if err != nil {
		if services.IsBadRequest(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Upload failed: " + err.Error()})
	}

	if !result.Final {
		return c.JSON(fiber.Map{"success": true, "message": "Chunk received"})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "File uploaded successfully",
		"filename": result.Filename,
		"size":     result.Size,
	})
}

// List returns shared-folder contents, newest first.
func (h *FileHandler) List(c *fiber.Ctx) error {
	files, err := h.files.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list files"})
	}
	return c.JSON(fiber.Map{"files": files})
}

// Download streams a shared file as an attachment.
func (h *FileHandler) Download(c *fiber.Ctx) error {
	name := paramFilename(c)
	path, err := h.files.Resolve(name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "File not found"})
	}
	return c.Download(path)
}

// Delete removes a shared file.
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	name := paramFilename(c)
	if err := h.files.Delete(name); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "File not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Delete failed: " + err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "message": "File deleted successfully"})
}

func paramFilename(c *fiber.Ctx) string {
	raw := c.Params("filename")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

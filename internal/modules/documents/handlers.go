package documents

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/dto"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/session"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type DocumentHandler struct {
	service *DocumentService
}

func NewDocumentHandler(service *DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload handles multipart POST /documents with one or more "files" parts and
// an optional "description" field.
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid multipart form",
		})
	}

	headers := form.File["files"]
	files := make([]UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFile(fh))
	}

	description := ""
	if v := form.Value["description"]; len(v) > 0 {
		description = v[0]
	}

	username := session.GetUsername(c)
	if username == "" {
		username = userID.String()
	}

	resp, err := h.service.Upload(c.UserContext(), userID, username, files, description)
	if err != nil {
		if validation.IsInvalid(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		if errors.Is(err, ErrUploadFailed) && resp != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(resp)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to upload documents",
		})
	}

	if len(resp.Failed) > 0 {
		return c.Status(fiber.StatusMultiStatus).JSON(resp)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *DocumentHandler) List(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	docs, err := h.service.List(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch documents",
		})
	}

	return c.JSON(DocumentListResponse{Documents: docs, Total: len(docs)})
}

func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid document ID",
		})
	}

	dl, err := h.service.Download(c.UserContext(), userID, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to prepare download",
		})
	}

	if dl.URL != "" {
		return c.Redirect(dl.URL, fiber.StatusTemporaryRedirect)
	}

	c.Set(fiber.HeaderContentType, dl.Document.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", dl.Document.OriginalFilename))
	return c.SendStream(dl.Body)
}

func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid document ID",
		})
	}

	if err := h.service.Delete(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete document",
		})
	}

	return c.JSON(dto.MessageResponse{Message: "Document deleted successfully"})
}

func uploadFile(fh *multipart.FileHeader) UploadFile {
	return UploadFile{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: strings.TrimSpace(fh.Header.Get("Content-Type")),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

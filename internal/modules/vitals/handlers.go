package vitals

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/dto"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/session"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type VitalHandler struct {
	service *VitalService
}

func NewVitalHandler(service *VitalService) *VitalHandler {
	return &VitalHandler{service: service}
}

func (h *VitalHandler) Log(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req CreateVitalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	vital, err := h.service.Log(userID, req)
	if err != nil {
		if validation.IsInvalid(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to log vital",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(vital)
}

// List handles GET /vitals?type=
func (h *VitalHandler) List(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	list, err := h.service.List(userID, c.Query("type"))
	if err != nil {
		if validation.IsInvalid(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch vitals",
		})
	}

	return c.JSON(VitalListResponse{Vitals: list, Total: len(list)})
}

func (h *VitalHandler) Delete(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid vital ID",
		})
	}

	if err := h.service.Delete(userID, id); err != nil {
		if errors.Is(err, ErrVitalNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete vital",
		})
	}

	return c.JSON(dto.MessageResponse{Message: "Vital deleted successfully"})
}

func (h *VitalHandler) Types(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	types, err := h.service.LoggedTypes(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch vital types",
		})
	}

	return c.JSON(fiber.Map{"types": types, "supported": Types})
}

func (h *VitalHandler) Trend(c *fiber.Ctx) error {
	trend, status, msg := h.trend(c)
	if trend == nil {
		return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
	}
	return c.JSON(trend)
}

func (h *VitalHandler) Chart(c *fiber.Ctx) error {
	trend, status, msg := h.trend(c)
	if trend == nil {
		return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
	}
	if len(trend.History) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "No " + trend.Type + " data logged yet",
		})
	}

	var buf bytes.Buffer
	if err := RenderChart(trend, &buf); err != nil {
		slog.Error("chart render failed", "action", "vitals_chart", "vital_type", trend.Type, "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to render chart",
		})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(buf.Bytes())
}

func (h *VitalHandler) trend(c *fiber.Ctx) (*TrendResponse, int, string) {
	userID, err := session.GetUserID(c)
	if err != nil {
		return nil, fiber.StatusUnauthorized, "Unauthorized"
	}

	trend, err := h.service.Trend(userID, c.Query("type"))
	if err != nil {
		if validation.IsInvalid(err) {
			return nil, fiber.StatusBadRequest, err.Error()
		}
		return nil, fiber.StatusInternalServerError, "Failed to load trend"
	}
	return trend, 0, ""
}

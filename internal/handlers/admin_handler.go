package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/dto"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

type ReminderRunner interface {
	CheckReminders(ctx context.Context, now time.Time) (*services.ReminderReport, error)
}

type AdminHandler struct {
	db        *gorm.DB
	reminders ReminderRunner
}

func NewAdminHandler(db *gorm.DB, reminders ReminderRunner) *AdminHandler {
	return &AdminHandler{db: db, reminders: reminders}
}

// Logs handles GET /admin/logs?level=&limit=
func (h *AdminHandler) Logs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultLogLimit)
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	q := h.db.Model(&models.SystemLog{})
	if level := strings.ToUpper(strings.TrimSpace(c.Query("level"))); level != "" {
		q = q.Where("level = ?", level)
	}

	logs := []models.SystemLog{}
	if err := q.Order("timestamp DESC").Limit(limit).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{"logs": logs, "total": len(logs)})
}

// RunReminders handles POST /admin/reminders/run
func (h *AdminHandler) RunReminders(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Minute)
	defer cancel()

	report, err := h.reminders.CheckReminders(ctx, time.Now())
	if errors.Is(err, services.ErrReminderCheckRunning) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: "A reminder check is already running",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Reminder check failed",
		})
	}

	return c.JSON(report)
}

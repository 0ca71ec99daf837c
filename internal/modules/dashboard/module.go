package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Module is read-only. It owns no tables.
type Module struct {
	svc *DashboardService
}

func New(db *gorm.DB, meds MedicationSource, appts AppointmentSource, docs DocumentSource, vits VitalSource) *Module {
	return &Module{svc: NewDashboardService(db, meds, appts, docs, vits)}
}

func (m *Module) ID() string { return "dashboard" }

func (m *Module) Models() []interface{} { return nil }

func (m *Module) RegisterRoutes(router fiber.Router) {
	handler := NewDashboardHandler(m.svc)

	router.Get("/dashboard", handler.Get)
}

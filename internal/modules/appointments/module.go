package appointments

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Module struct {
	svc *AppointmentService
}

func New(db *gorm.DB) *Module {
	return &Module{svc: NewAppointmentService(db)}
}

func (m *Module) ID() string { return "appointments" }

func (m *Module) Models() []interface{} {
	return []interface{}{&Appointment{}}
}

func (m *Module) Service() *AppointmentService { return m.svc }

func (m *Module) RegisterRoutes(router fiber.Router) {
	handler := NewAppointmentHandler(m.svc)

	router.Post("/appointments", handler.Create)
	router.Get("/appointments", handler.List)
	router.Get("/appointments/:id", handler.Get)
	router.Put("/appointments/:id", handler.Update)
	router.Delete("/appointments/:id", handler.Delete)
}

func (m *Module) PurgeUserData(tx *gorm.DB, userID uuid.UUID) (func(), error) {
	return nil, tx.Where("user_id = ?", userID).Delete(&Appointment{}).Error
}

package vitals

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Module struct {
	svc *VitalService
}

func New(db *gorm.DB) *Module {
	return &Module{svc: NewVitalService(db)}
}

func (m *Module) ID() string { return "vitals" }

func (m *Module) Models() []interface{} {
	return []interface{}{&HealthVital{}}
}

func (m *Module) Service() *VitalService { return m.svc }

func (m *Module) RegisterRoutes(router fiber.Router) {
	handler := NewVitalHandler(m.svc)

	router.Post("/vitals", handler.Log)
	router.Get("/vitals", handler.List)
	router.Get("/vitals/types", handler.Types)
	router.Get("/vitals/trend", handler.Trend)
	router.Get("/vitals/chart.png", handler.Chart)
	router.Delete("/vitals/:id", handler.Delete)
}

func (m *Module) PurgeUserData(tx *gorm.DB, userID uuid.UUID) (func(), error) {
	return nil, tx.Where("user_id = ?", userID).Delete(&HealthVital{}).Error
}

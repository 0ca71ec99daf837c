package medications

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Module struct {
	svc *MedicationService
}

func New(db *gorm.DB) *Module {
	return &Module{svc: NewMedicationService(db)}
}

func (m *Module) ID() string { return "medications" }

func (m *Module) Models() []interface{} {
	return []interface{}{&Medication{}}
}

func (m *Module) Service() *MedicationService { return m.svc }

func (m *Module) RegisterRoutes(router fiber.Router) {
	handler := NewMedicationHandler(m.svc)

	router.Post("/medications", handler.Create)
	router.Get("/medications", handler.List)
	router.Get("/medications/:id", handler.Get)
	router.Put("/medications/:id", handler.Update)
	router.Delete("/medications/:id", handler.Delete)
}

func (m *Module) PurgeUserData(tx *gorm.DB, userID uuid.UUID) (func(), error) {
	return nil, tx.Where("user_id = ?", userID).Delete(&Medication{}).Error
}

package documents

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Module struct {
	svc *DocumentService
}

func New(db *gorm.DB, store storage.BlobStore, urlTTL time.Duration) *Module {
	return &Module{svc: NewDocumentService(db, store, urlTTL)}
}

func (m *Module) ID() string { return "documents" }

func (m *Module) Models() []interface{} {
	return []interface{}{&Document{}}
}

func (m *Module) Service() *DocumentService { return m.svc }

func (m *Module) RegisterRoutes(router fiber.Router) {
	handler := NewDocumentHandler(m.svc)

	router.Post("/documents", handler.Upload)
	router.Get("/documents", handler.List)
	router.Get("/documents/:id/download", handler.Download)
	router.Delete("/documents/:id", handler.Delete)
}

// PurgeUserData removes the rows in tx. Blobs go after commit.
func (m *Module) PurgeUserData(tx *gorm.DB, userID uuid.UUID) (func(), error) {
	return m.svc.purge(tx, userID)
}

package modules

import (
	"github.com/gofiber/fiber/v2"
)

// Module defines the interface every feature area must implement.
type Module interface {
	// ID returns the unique module identifier, used in logs.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts module routes on the given Fiber group.
	// The group is already prefixed with /api and has JWT middleware applied.
	RegisterRoutes(router fiber.Router)
}

package middleware

import (
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/config"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/dto"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/session"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// JWTProtected verifies the bearer access token and stores it in
// c.Locals("user") for the session accessors.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// ActiveUser rejects a valid token whose account has been deleted. It must
// run after JWTProtected.
func ActiveUser(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := session.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		var n int64
		if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to verify account",
			})
		}
		if n == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized: account no longer exists",
			})
		}
		return c.Next()
	}
}

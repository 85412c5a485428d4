package middleware

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/config"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/identity"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected verifies the bearer token issued by the auth service and
// stores it under identity.TokenKey.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ContextKey: identity.TokenKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Code:    "unauthorized",
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// JWTUnlessAdminToken lets requests carrying X-Admin-Token through to
// AdminRequired, which verifies the token itself. All others need a JWT.
func JWTUnlessAdminToken(cfg *config.Config) fiber.Handler {
	protected := JWTProtected(cfg)
	return func(c *fiber.Ctx) error {
		if cfg.AdminTokenHash != "" && c.Get("X-Admin-Token") != "" {
			return c.Next()
		}
		return protected(c)
	}
}

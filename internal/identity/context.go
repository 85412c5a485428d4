package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Locals keys set by the auth middleware.
const (
	TokenKey   = "user"
	AdminIDKey = "admin_id"
)

var (
	ErrNoToken   = errors.New("invalid token in context")
	ErrNoClaims  = errors.New("invalid claims")
	ErrNoSubject = errors.New("missing sub claim")
	ErrNoAdmin   = errors.New("no admin identity in context")
)

// Claims returns the verified JWT claims of the request.
func Claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals(TokenKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// GetAccountID extracts the caller's account UUID from the sub claim.
func GetAccountID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := Claims(c)
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, ErrNoSubject
	}
	return uuid.Parse(sub)
}

// Role returns the role claim, or "" when absent.
func Role(c *fiber.Ctx) string {
	claims, err := Claims(c)
	if err != nil {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}

// GetAdminID returns the admin identity resolved by AdminRequired.
func GetAdminID(c *fiber.Ctx) (uuid.UUID, error) {
	if id, ok := c.Locals(AdminIDKey).(uuid.UUID); ok && id != uuid.Nil {
		return id, nil
	}
	return uuid.Nil, ErrNoAdmin
}

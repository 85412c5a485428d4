package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/config"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/identity"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminChecker reports whether an account holds the admin role in storage.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
}

// AdminRequired admits a request when any of these hold:
// 1. X-Admin-Token matches ADMIN_TOKEN_HASH (acts as ADMIN_TOKEN_ACTOR_ID)
// 2. the JWT role claim is admin
// 3. the JWT subject is listed in ADMIN_USER_IDS
// 4. the account's stored role is admin
// The resolved admin id is stored under identity.AdminIDKey.
func AdminRequired(checker AdminChecker, cfg *config.Config) fiber.Handler {
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	tokenActor := uuid.Nil
	if cfg.AdminTokenHash != "" {
		id, err := uuid.Parse(cfg.AdminTokenActorID)
		if err != nil {
			slog.Warn("ADMIN_TOKEN_HASH set without a valid ADMIN_TOKEN_ACTOR_ID, admin token disabled")
		} else {
			tokenActor = id
		}
	}

	return func(c *fiber.Ctx) error {
		if tokenActor != uuid.Nil {
			if token := c.Get("X-Admin-Token"); token != "" {
				if bcrypt.CompareHashAndPassword([]byte(cfg.AdminTokenHash), []byte(token)) == nil {
					c.Locals(identity.AdminIDKey, tokenActor)
					return c.Next()
				}
			}
		}

		accountID, err := identity.GetAccountID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Code: "unauthorized", Message: "Unauthorized",
			})
		}

		if identity.Role(c) == models.RoleAdmin || contains(adminUserIDs, accountID.String()) {
			c.Locals(identity.AdminIDKey, accountID)
			return c.Next()
		}

		if checker != nil {
			ok, err := checker.IsAdmin(c.UserContext(), accountID)
			if err != nil {
				slog.Error("admin role lookup failed", "account_id", accountID, "error", err)
			}
			if ok {
				c.Locals(identity.AdminIDKey, accountID)
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Code: "forbidden", Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}

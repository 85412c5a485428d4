package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/config"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/identity"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type roleTable map[uuid.UUID]bool

func (r roleTable) IsAdmin(_ context.Context, id uuid.UUID) (bool, error) {
	return r[id], nil
}

func signed(t *testing.T, secret string, sub uuid.UUID, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestAdminRequired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	listed := uuid.New()
	stored := uuid.New()
	operator := uuid.New()
	cfg := &config.Config{
		JWTSecret:         "jwt",
		AdminUserIDs:      " " + listed.String() + " ,",
		AdminTokenHash:    string(hash),
		AdminTokenActorID: operator.String(),
	}

	app := fiber.New()
	app.Get("/admin", JWTUnlessAdminToken(cfg), AdminRequired(roleTable{stored: true}, cfg), func(c *fiber.Ctx) error {
		id, err := identity.GetAdminID(c)
		if err != nil {
			return err
		}
		return c.SendString(id.String())
	})

	call := func(headers map[string]string) (int, string) {
		req := httptest.NewRequest("GET", "/admin", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	member := uuid.New()
	roleAdmin := uuid.New()
	tests := []struct {
		name    string
		headers map[string]string
		status  int
		adminID uuid.UUID
	}{
		{"no credentials", nil, fiber.StatusUnauthorized, uuid.Nil},
		{"operator token", map[string]string{"X-Admin-Token": "s3cret"}, fiber.StatusOK, operator},
		{"wrong operator token", map[string]string{"X-Admin-Token": "nope"}, fiber.StatusUnauthorized, uuid.Nil},
		{"role claim", map[string]string{"Authorization": "Bearer " + signed(t, "jwt", roleAdmin, "admin")}, fiber.StatusOK, roleAdmin},
		{"listed id", map[string]string{"Authorization": "Bearer " + signed(t, "jwt", listed, "")}, fiber.StatusOK, listed},
		{"stored role", map[string]string{"Authorization": "Bearer " + signed(t, "jwt", stored, "")}, fiber.StatusOK, stored},
		{"plain member", map[string]string{"Authorization": "Bearer " + signed(t, "jwt", member, "")}, fiber.StatusForbidden, uuid.Nil},
		{"forged signature", map[string]string{"Authorization": "Bearer " + signed(t, "other", roleAdmin, "admin")}, fiber.StatusUnauthorized, uuid.Nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(tt.headers)
			assert.Equal(t, tt.status, status)
			if tt.adminID != uuid.Nil {
				assert.Equal(t, tt.adminID.String(), body)
			}
		})
	}
}

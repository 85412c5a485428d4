package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidTier, fiber.StatusBadRequest},
		{services.ErrGiftNotFound, fiber.StatusNotFound},
		{fmt.Errorf("send: %w", services.ErrInsufficientBalance), fiber.StatusPaymentRequired},
		{services.ErrNotReceiver, fiber.StatusForbidden},
		{services.ErrAccountBanned, fiber.StatusForbidden},
		{services.ErrAlreadyBanned, fiber.StatusConflict},
		{services.ErrConflict, fiber.StatusConflict},
		{services.ErrStorageTimeout, fiber.StatusServiceUnavailable},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(services.Code(tt.err), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("pq: password authentication failed"))
	})
	app.Get("/business", func(c *fiber.Ctx) error {
		return respondError(c, fmt.Errorf("debit: %w", services.ErrInsufficientBalance))
	})

	decode := func(path string) (int, dto.ErrorResponse) {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var out dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &out))
		return resp.StatusCode, out
	}

	status, out := decode("/internal")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", out.Code)
	assert.Equal(t, "Internal server error", out.Message)

	status, out = decode("/business")
	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.True(t, out.Error)
	assert.Equal(t, "insufficient balance", out.Message)
}

func TestRespondError_ExposesContentRejectionReason(t *testing.T) {
	app := fiber.New()
	app.Get("/gift", func(c *fiber.Ctx) error {
		return respondError(c, fmt.Errorf("send: %w", &services.ContentError{
			Reason:  "url_not_allowed",
			Message: "URLs and web links are not allowed.",
		}))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/gift", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_gift_message", out.Code)
	assert.Equal(t, "url_not_allowed", out.Reason)
	assert.Equal(t, "URLs and web links are not allowed.", out.Message)
}

package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/identity"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrNotReceiver),
		errors.Is(err, services.ErrAccountBanned),
		errors.Is(err, services.ErrGiftBlocked):
		return fiber.StatusForbidden
	}
	switch services.Classify(err) {
	case services.ClassValidation:
		return fiber.StatusBadRequest
	case services.ClassNotFound:
		return fiber.StatusNotFound
	case services.ClassBusiness, services.ClassConflict:
		return fiber.StatusConflict
	case services.ClassUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as a dto.ErrorResponse. Server-side failures are
// logged and sent to Sentry; their details never reach the client.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	message := "Internal server error"
	reason := ""
	var engineErr *services.Error
	var contentErr *services.ContentError
	switch {
	case errors.As(err, &contentErr):
		message, reason = contentErr.Message, contentErr.Reason
	case errors.As(err, &engineErr):
		message = engineErr.Error()
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", requestID(c),
			"operation", c.Method()+" "+c.Route().Path,
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    services.Code(err),
		Message: message,
		Reason:  reason,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Code: "bad_request", Message: message,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Code: "unauthorized", Message: "Unauthorized",
	})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func pagination(c *fiber.Ctx) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit > 100 {
		limit = 100
	}
	return limit, offset
}

// userActor identifies the authenticated member making the request.
func userActor(c *fiber.Ctx) (services.Actor, bool) {
	id, err := identity.GetAccountID(c)
	if err != nil {
		return services.Actor{}, false
	}
	return services.UserActor(id, c.IP()), true
}

// adminActor identifies the admin resolved by middleware.AdminRequired.
func adminActor(c *fiber.Ctx) (services.Actor, bool) {
	id, err := identity.GetAdminID(c)
	if err != nil {
		return services.Actor{}, false
	}
	return services.AdminActor(id, c.IP()), true
}

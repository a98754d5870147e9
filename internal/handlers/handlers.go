package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func badBody(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
}

// serviceError maps service sentinels to HTTP statuses. Anything unknown is
// logged and reported as fallback with a 500.
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return errorJSON(c, fiber.StatusBadRequest, services.ValidationMessage(err))
	case errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrStudentNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrDepartmentNotFound),
		errors.Is(err, services.ErrProctorNotFound),
		errors.Is(err, services.ErrCorrespondentNotFound):
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrStudentNotVerified):
		return errorJSON(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrProfileExists),
		errors.Is(err, services.ErrDuplicateDepartment):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrIdentityConflict):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrRejected):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		slog.Warn(fallback, "path", c.Path(), "error", err.Error())
		return errorJSON(c, fiber.StatusServiceUnavailable, "Upstream service temporarily unavailable, try again shortly")
	}
	slog.Error(fallback, "method", c.Method(), "path", c.Path(), "error", err.Error())
	return errorJSON(c, fiber.StatusInternalServerError, fallback)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func fileURL(key string) string {
	return "/api/files/" + key
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	verifier *identity.WebhookVerifier
	users    *services.UserService
}

// NewWebhookHandler accepts a nil verifier; every delivery is then refused.
func NewWebhookHandler(verifier *identity.WebhookVerifier, users *services.UserService) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, users: users}
}

// HandleClerk mirrors user.created / user.updated into the users table.
func (h *WebhookHandler) HandleClerk(c *fiber.Ctx) error {
	if h.verifier == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "Webhooks not configured")
	}

	payload := c.Body()
	headers := http.Header{}
	for _, k := range []string{"svix-id", "svix-timestamp", "svix-signature"} {
		headers.Set(k, c.Get(k))
	}
	if err := h.verifier.Verify(payload, headers); err != nil {
		slog.Warn("webhook signature rejected", "error", err.Error())
		return errorJSON(c, fiber.StatusBadRequest, "Invalid webhook signature")
	}

	event, err := identity.ParseEvent(payload)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid webhook payload")
	}
	if !event.MirrorsUser() {
		return c.JSON(fiber.Map{"received": true, "ignored": event.Type})
	}
	if event.Data.ID == "" {
		return errorJSON(c, fiber.StatusBadRequest, identity.ErrMissingUserID.Error())
	}

	user, err := h.users.SyncFromIdentity(c.UserContext(), event.Data.ID, event.Data.Role())
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return errorJSON(c, fiber.StatusBadRequest, services.ValidationMessage(err))
		}
		slog.Error("webhook processing failed", "event_type", event.Type, "error", err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to process webhook event")
	}

	slog.Info("webhook processed", "event_type", event.Type, "user_id", user.ID.String())
	return c.JSON(fiber.Map{"received": true})
}

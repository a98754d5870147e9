package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping   func() error
	broker string
}

func NewHealthHandler(ping func() error, brokerKind string) *HealthHandler {
	return &HealthHandler{ping: ping, broker: brokerKind}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Broker:    h.broker,
	})
}

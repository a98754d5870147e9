package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const heartbeatInterval = 15 * time.Second

// StreamHandler serves live location and status updates as Server-Sent Events.
type StreamHandler struct {
	reports   *services.ReportService
	locations *services.LocationService
	broker    live.Broker
}

func NewStreamHandler(reports *services.ReportService, locations *services.LocationService, broker live.Broker) *StreamHandler {
	return &StreamHandler{reports: reports, locations: locations, broker: broker}
}

// Staff streams a report by id.
func (h *StreamHandler) Staff(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	if _, err := h.reports.GetByID(c.UserContext(), id); err != nil {
		return serviceError(c, err, "Failed to load report")
	}
	return h.stream(c, id)
}

// Public streams a report by share token.
func (h *StreamHandler) Public(c *fiber.Ctx) error {
	report, err := h.reports.GetByToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return serviceError(c, err, "Failed to load report")
	}
	return h.stream(c, report.ID)
}

func (h *StreamHandler) stream(c *fiber.Ctx, reportID uuid.UUID) error {
	// The body writer runs after this handler returns, so the subscription
	// gets its own context, cancelled when the client goes away.
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := h.broker.Subscribe(ctx, live.LocationTopic(reportID))
	if err != nil {
		cancel()
		slog.Error("live subscribe failed", "report_id", reportID.String(), "error", err.Error())
		return errorJSON(c, fiber.StatusServiceUnavailable, "Live updates unavailable")
	}
	updates, err := h.broker.Subscribe(ctx, live.ReportTopic(reportID))
	if err != nil {
		sub.Close()
		cancel()
		slog.Error("live subscribe failed", "report_id", reportID.String(), "error", err.Error())
		return errorJSON(c, fiber.StatusServiceUnavailable, "Live updates unavailable")
	}

	var initial []byte
	if loc, err := h.locations.Latest(c.UserContext(), reportID); err == nil && loc != nil {
		initial, _ = json.Marshal(loc)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Close()
		defer updates.Close()
		if err := streamEvents(ctx, w, initial, sub, updates, heartbeatInterval); err != nil {
			slog.Debug("location stream ended", "report_id", reportID.String(), "error", err.Error())
		}
	}))
	return nil
}

// streamEvents writes the initial row (if any), then every published row as a
// "location" event and every status change on updates as a "status" event.
// It returns when the location subscription or ctx ends or a write fails.
// updates may be nil.
func streamEvents(ctx context.Context, w *bufio.Writer, initial []byte, sub, updates *live.Subscription, heartbeat time.Duration) error {
	if _, err := fmt.Fprint(w, "retry: 3000\n\n"); err != nil {
		return err
	}
	if initial != nil {
		if err := writeEvent(w, "location", initial); err != nil {
			return err
		}
	} else if err := w.Flush(); err != nil {
		return err
	}

	var statusC <-chan []byte
	if updates != nil {
		statusC = updates.C
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			if !validLocation(msg) {
				continue
			}
			if err := writeEvent(w, "location", msg); err != nil {
				return err
			}
		case msg, ok := <-statusC:
			if !ok {
				statusC = nil
				continue
			}
			if !validStatus(msg) {
				continue
			}
			if err := writeEvent(w, "status", msg); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w *bufio.Writer, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func validLocation(msg []byte) bool {
	var loc models.ReportLocation
	return json.Unmarshal(msg, &loc) == nil && loc.ReportID != uuid.Nil
}

func validStatus(msg []byte) bool {
	var change struct {
		Status string `json:"status"`
	}
	return json.Unmarshal(msg, &change) == nil && models.ValidReportStatus(change.Status)
}

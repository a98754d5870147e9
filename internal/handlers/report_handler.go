package handlers

import (
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/skip2/go-qrcode"
)

type ReportHandler struct {
	reports   *services.ReportService
	locations *services.LocationService
	students  *services.StudentService
	shareLink func(token string) string
}

func NewReportHandler(reports *services.ReportService, locations *services.LocationService, students *services.StudentService, shareLink func(string) string) *ReportHandler {
	return &ReportHandler{reports: reports, locations: locations, students: students, shareLink: shareLink}
}

// currentStudent is set by RequireVerifiedStudent.
func currentStudent(c *fiber.Ctx) (*models.Student, error) {
	st := auth.Student(c)
	if st == nil {
		return nil, errorJSON(c, fiber.StatusForbidden, "Student account required")
	}
	return st, nil
}

// ownReport loads :id for the signed-in student or writes the error response.
func (h *ReportHandler) ownReport(c *fiber.Ctx) (*models.Report, bool, error) {
	st, err := currentStudent(c)
	if st == nil {
		return nil, false, err
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, false, errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	report, err := h.reports.GetForReporter(c.UserContext(), id, st.ID)
	if err != nil {
		return nil, false, serviceError(c, err, "Failed to load report")
	}
	return report, true, nil
}

// Student routes

func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	st, err := currentStudent(c)
	if st == nil {
		return err
	}
	var req dto.SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	resp, err := h.reports.Submit(c.UserContext(), st.ID, req)
	if err != nil {
		return serviceError(c, err, "Failed to submit report")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *ReportHandler) ListMine(c *fiber.Ctx) error {
	st, err := currentStudent(c)
	if st == nil {
		return err
	}
	reports, err := h.reports.ListByReporter(c.UserContext(), st.ID)
	if err != nil {
		return serviceError(c, err, "Failed to list reports")
	}
	return c.JSON(reports)
}

func (h *ReportHandler) GetMine(c *fiber.Ctx) error {
	report, ok, err := h.ownReport(c)
	if !ok {
		return err
	}
	return c.JSON(report)
}

func (h *ReportHandler) AppendMyLocation(c *fiber.Ctx) error {
	report, ok, err := h.ownReport(c)
	if !ok {
		return err
	}
	var req dto.AppendLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	loc, err := h.locations.Append(c.UserContext(), report.ID, req.Latitude, req.Longitude)
	if err != nil {
		return serviceError(c, err, "Failed to record location")
	}
	return c.Status(fiber.StatusCreated).JSON(loc)
}

func (h *ReportHandler) MyLatestLocation(c *fiber.Ctx) error {
	report, ok, err := h.ownReport(c)
	if !ok {
		return err
	}
	return h.latest(c, report)
}

func (h *ReportHandler) AttachAudio(c *fiber.Ctx) error {
	st, err := currentStudent(c)
	if st == nil {
		return err
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	var req dto.AttachAudioRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	report, err := h.reports.AttachAudio(c.UserContext(), id, st.ID, req.AudioPath)
	if err != nil {
		return serviceError(c, err, "Failed to attach audio")
	}
	return c.JSON(report)
}

func (h *ReportHandler) MyShareQR(c *fiber.Ctx) error {
	report, ok, err := h.ownReport(c)
	if !ok {
		return err
	}
	return h.qr(c, report)
}

// Staff routes

func (h *ReportHandler) List(c *fiber.Ctx) error {
	items, err := h.reports.ListWithReporter(c.UserContext(), c.Query("status"))
	if err != nil {
		return serviceError(c, err, "Failed to list reports")
	}
	return c.JSON(items)
}

func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	items, err := h.reports.ListForDashboard(c.UserContext(), c.Query("status"))
	if err != nil {
		return serviceError(c, err, "Failed to load dashboard")
	}
	return c.JSON(items)
}

func (h *ReportHandler) report(c *fiber.Ctx) (*models.Report, bool, error) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, false, errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	report, err := h.reports.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, false, serviceError(c, err, "Failed to load report")
	}
	return report, true, nil
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	report, ok, err := h.report(c)
	if !ok {
		return err
	}
	item := dto.ReportWithReporter{Report: *report}
	if summary, err := h.students.GetWithDepartment(c.UserContext(), report.ReporterID); err == nil {
		item.Reporter = summary
	}
	return c.JSON(item)
}

func (h *ReportHandler) LatestLocation(c *fiber.Ctx) error {
	report, ok, err := h.report(c)
	if !ok {
		return err
	}
	return h.latest(c, report)
}

func (h *ReportHandler) History(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	hist, err := h.locations.History(c.UserContext(), id, c.QueryInt("limit", 0))
	if err != nil {
		return serviceError(c, err, "Failed to load location history")
	}
	return c.JSON(hist)
}

func (h *ReportHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	report, err := h.reports.UpdateStatus(c.UserContext(), id, req)
	if err != nil {
		return serviceError(c, err, "Failed to update status")
	}
	return c.JSON(report)
}

func (h *ReportHandler) ShareQR(c *fiber.Ctx) error {
	report, ok, err := h.report(c)
	if !ok {
		return err
	}
	return h.qr(c, report)
}

// Public routes

func (h *ReportHandler) PublicGet(c *fiber.Ctx) error {
	view, err := h.reports.PublicView(c.UserContext(), c.Params("token"), fileURL)
	if err != nil {
		return serviceError(c, err, "Failed to load report")
	}
	return c.JSON(view)
}

func (h *ReportHandler) PublicLocation(c *fiber.Ctx) error {
	report, err := h.reports.GetByToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return serviceError(c, err, "Failed to load report")
	}
	return h.latest(c, report)
}

// latest writes the newest location, or JSON null when none exists yet.
func (h *ReportHandler) latest(c *fiber.Ctx, report *models.Report) error {
	loc, err := h.locations.Latest(c.UserContext(), report.ID)
	if err != nil {
		return serviceError(c, err, "Failed to load location")
	}
	if loc == nil {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString("null")
	}
	return c.JSON(loc)
}

func (h *ReportHandler) qr(c *fiber.Ctx, report *models.Report) error {
	png, err := qrcode.Encode(h.shareLink(report.PublicToken), qrcode.Medium, 256)
	if err != nil {
		return serviceError(c, err, "Failed to render QR code")
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

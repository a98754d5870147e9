package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type ReportService struct {
	stores    Stores
	notifier  Notifier
	live      Publisher
	shareLink func(token string) string

	newToken func() (string, error)
	now      func() time.Time
}

func NewReportService(stores Stores, notifier Notifier, live Publisher, shareLink func(string) string) *ReportService {
	return &ReportService{
		stores:    stores,
		notifier:  notifier,
		live:      live,
		shareLink: shareLink,
		newToken:  func() (string, error) { return gonanoid.New() },
		now:       time.Now,
	}
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// validUpload accepts only keys produced by the storage layer for kind.
func validUpload(path *string, kind string) bool {
	if path == nil {
		return true
	}
	p := *path
	return strings.HasPrefix(p, kind+"/") && !strings.Contains(p, "..") && len(p) > len(kind)+1
}

// Submit files a report for a verified student, records the first location
// and then queues proctor alerts. Alerts never fail the submission.
func (s *ReportService) Submit(ctx context.Context, reporterID uuid.UUID, req dto.SubmitReportRequest) (*dto.SubmitReportResponse, error) {
	if !models.ValidReportType(req.Type) {
		return nil, invalid("type must be ragging or safety")
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, invalid("description is required")
	}
	if !validCoordinates(req.Latitude, req.Longitude) {
		return nil, invalid("latitude/longitude out of range")
	}
	if !validUpload(req.PhotoPath, "photos") {
		return nil, invalid("photo_path must be an uploaded photo")
	}
	if !validUpload(req.AudioPath, "audio") {
		return nil, invalid("audio_path must be an uploaded audio file")
	}

	student, err := s.stores.Students.FindByID(ctx, reporterID)
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	if !student.CanReport() {
		return nil, ErrStudentNotVerified
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}
	now := s.now().UTC()
	report := &models.Report{
		ID:          uuid.New(),
		ReporterID:  student.ID,
		Type:        req.Type,
		Description: desc,
		PhotoPath:   req.PhotoPath,
		AudioPath:   req.AudioPath,
		Status:      models.ReportStatusPending,
		PublicToken: token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	loc := &models.ReportLocation{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: now,
	}
	if err := s.stores.Reports.CreateWithLocation(ctx, report, loc); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	slog.Info("report submitted", "action", "report_submitted", "report_id", report.ID.String(), "type", report.Type)

	publishLocation(ctx, s.live, *loc)
	link := s.shareLink(token)
	s.alertProctors(ctx, report, student, link)

	return &dto.SubmitReportResponse{ReportID: report.ID, PublicToken: token, ShareLink: link}, nil
}

func (s *ReportService) alertProctors(ctx context.Context, report *models.Report, student *models.Student, link string) {
	ctx, cancel := detached(ctx)
	defer cancel()
	logErr := func(msg string, err error) {
		slog.Error(msg, "action", "proctor_alert", "report_id", report.ID.String(), "error", err.Error())
	}

	proctors, err := s.stores.Proctors.List(ctx, true)
	if err != nil {
		logErr("failed to load proctors", err)
		return
	}
	recipients := make([]notify.Recipient, 0, len(proctors))
	for _, p := range proctors {
		recipients = append(recipients, notify.Recipient{Email: p.Email, Mobile: p.Mobile})
	}
	reporter := notify.Reporter{
		Name:               student.Name,
		Department:         student.DepartmentName(),
		RegistrationNumber: student.RegistrationNumber,
		Mobile:             student.Mobile,
	}
	jobs, err := notify.NewReportJobs(report.ID, reporter, link, recipients)
	if err != nil {
		logErr("failed to render proctor alert", err)
		return
	}
	if len(jobs) == 0 {
		slog.Warn("no active proctors to alert", "action", "proctor_alert", "report_id", report.ID.String())
		return
	}
	if err := s.notifier.Enqueue(ctx, jobs...); err != nil {
		logErr("failed to queue proctor alert", err)
	}
}

// UpdateStatus sets any status (transitions are unordered), stores a
// non-blank note and emails the reporter.
func (s *ReportService) UpdateStatus(ctx context.Context, id uuid.UUID, req dto.UpdateStatusRequest) (*models.Report, error) {
	if !models.ValidReportStatus(req.Status) {
		return nil, invalid("status must be pending, acknowledged or resolved")
	}
	report, err := s.stores.Reports.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}

	fields := repository.Fields{"status": req.Status}
	note := ""
	if req.StatusNote != nil {
		note = strings.TrimSpace(*req.StatusNote)
	}
	if note != "" {
		fields["status_note"] = note
	}
	if err := s.stores.Reports.Update(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("failed to update report status: %w", notFound(err, ErrReportNotFound))
	}
	slog.Info("report status updated", "action", "status_updated", "report_id", id.String(), "status", req.Status)

	if payload, err := json.Marshal(map[string]string{"status": req.Status}); err == nil {
		if err := s.live.Publish(ctx, live.ReportTopic(id), payload); err != nil {
			slog.Warn("failed to publish status", "report_id", id.String(), "error", err.Error())
		}
	}

	s.emailReporter(ctx, report, req.Status, note)

	updated, err := s.stores.Reports.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	return updated, nil
}

func (s *ReportService) emailReporter(ctx context.Context, report *models.Report, status, note string) {
	ctx, cancel := detached(ctx)
	defer cancel()

	student, err := s.stores.Students.FindByID(ctx, report.ReporterID)
	if err != nil {
		slog.Warn("reporter not found for status email", "report_id", report.ID.String(), "error", err.Error())
		return
	}
	if strings.TrimSpace(student.Email) == "" {
		return
	}
	msg, err := notify.StatusUpdateEmail(student.Email, student.Name, report.Type, status, note, s.shareLink(report.PublicToken))
	if err != nil {
		slog.Error("failed to render status email", "report_id", report.ID.String(), "error", err.Error())
		return
	}
	reportID := report.ID
	job := notify.Job{Kind: notify.KindReporterStatus, ReportID: &reportID, Email: &msg}
	if err := s.notifier.Enqueue(ctx, job); err != nil {
		slog.Error("failed to queue status email", "action", "status_email", "report_id", report.ID.String(), "error", err.Error())
	}
}

// AttachAudio sets the audio key on a report owned by reporterID.
func (s *ReportService) AttachAudio(ctx context.Context, id, reporterID uuid.UUID, audioPath string) (*models.Report, error) {
	if !validUpload(&audioPath, "audio") {
		return nil, invalid("audio_path must be an uploaded audio file")
	}
	if _, err := s.GetForReporter(ctx, id, reporterID); err != nil {
		return nil, err
	}
	if err := s.stores.Reports.Update(ctx, id, repository.Fields{"audio_path": audioPath}); err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	return s.GetByID(ctx, id)
}

func (s *ReportService) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	r, err := s.stores.Reports.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	return r, nil
}

func (s *ReportService) GetByToken(ctx context.Context, token string) (*models.Report, error) {
	if token == "" {
		return nil, ErrReportNotFound
	}
	r, err := s.stores.Reports.FindByToken(ctx, token)
	if err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	return r, nil
}

// GetForReporter hides other students' reports behind ErrReportNotFound.
func (s *ReportService) GetForReporter(ctx context.Context, id, reporterID uuid.UUID) (*models.Report, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ReporterID != reporterID {
		return nil, ErrReportNotFound
	}
	return r, nil
}

func (s *ReportService) ListByReporter(ctx context.Context, reporterID uuid.UUID) ([]models.Report, error) {
	return s.list(ctx, repository.ReportFilter{ReporterID: &reporterID})
}

// List returns all reports, optionally filtered by status, newest first.
func (s *ReportService) List(ctx context.Context, status string) ([]models.Report, error) {
	if status != "" && !models.ValidReportStatus(status) {
		return nil, invalid("unknown status %q", status)
	}
	return s.list(ctx, repository.ReportFilter{Status: status})
}

func (s *ReportService) list(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	reports, err := s.stores.Reports.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

// ListWithReporter joins each report with its student and department.
func (s *ReportService) ListWithReporter(ctx context.Context, status string) ([]dto.ReportWithReporter, error) {
	if status != "" && !models.ValidReportStatus(status) {
		return nil, invalid("unknown status %q", status)
	}
	reports, err := s.list(ctx, repository.ReportFilter{Status: status, WithReporter: true})
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReportWithReporter, 0, len(reports))
	for _, r := range reports {
		item := dto.ReportWithReporter{Report: r}
		if r.Reporter != nil {
			item.Reporter = reporterSummary(r.Reporter)
		}
		item.Report.Reporter = nil
		out = append(out, item)
	}
	return out, nil
}

// ListForDashboard pairs each report with its latest location, nil when
// none has been recorded.
func (s *ReportService) ListForDashboard(ctx context.Context, status string) ([]dto.DashboardReport, error) {
	reports, err := s.List(ctx, status)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.ID)
	}
	latest, err := s.stores.Locations.LatestForReports(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest locations: %w", err)
	}
	out := make([]dto.DashboardReport, 0, len(reports))
	for _, r := range reports {
		item := dto.DashboardReport{Report: r}
		if loc, ok := latest[r.ID]; ok {
			l := loc
			item.LatestLocation = &l
		}
		out = append(out, item)
	}
	return out, nil
}

// PublicView is the share-link projection. fileURL maps a storage key to a
// download URL.
func (s *ReportService) PublicView(ctx context.Context, token string, fileURL func(string) string) (*dto.PublicReport, error) {
	r, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	view := &dto.PublicReport{
		Type:        r.Type,
		Description: r.Description,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
	if r.PhotoPath != nil {
		view.PhotoURL = fileURL(*r.PhotoPath)
	}
	if r.AudioPath != nil {
		view.AudioURL = fileURL(*r.AudioPath)
	}
	loc, err := s.stores.Locations.Latest(ctx, r.ID)
	switch {
	case err == nil:
		view.LatestLocation = loc
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load latest location: %w", err)
	}
	return view, nil
}

func reporterSummary(st *models.Student) *dto.ReporterSummary {
	return &dto.ReporterSummary{
		Name:               st.Name,
		Email:              st.Email,
		Mobile:             st.Mobile,
		RegistrationNumber: st.RegistrationNumber,
		DepartmentName:     st.DepartmentName(),
	}
}

func publishLocation(ctx context.Context, p Publisher, loc models.ReportLocation) {
	payload, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := p.Publish(ctx, live.LocationTopic(loc.ReportID), payload); err != nil {
		slog.Warn("failed to publish location", "report_id", loc.ReportID.String(), "error", err.Error())
	}
}

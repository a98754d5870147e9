package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func validSubmit() dto.SubmitReportRequest {
	return dto.SubmitReportRequest{
		Type:        models.ReportTypeRagging,
		Description: "  seniors blocked the hostel corridor  ",
		PhotoPath:   strPtr("photos/abc.jpg"),
		Latitude:    24.9176,
		Longitude:   91.8320,
	}
}

func TestSubmitReport(t *testing.T) {
	e := newEnv(t)
	e.store.SeedProctor(models.Proctor{Name: "Active", Email: "p1@example.edu", Mobile: "01811000000", DepartmentID: e.dept.ID, IsActive: true})
	e.store.SeedProctor(models.Proctor{Name: "Retired", Email: "p2@example.edu", DepartmentID: e.dept.ID, IsActive: false})

	resp, err := e.reports.Submit(context.Background(), e.student.ID, validSubmit())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(resp.PublicToken) != 21 {
		t.Errorf("token length = %d, want 21", len(resp.PublicToken))
	}
	if resp.ShareLink != "https://surokha.example.edu/report/"+resp.PublicToken {
		t.Errorf("share link = %q", resp.ShareLink)
	}

	report, err := e.reports.GetByID(context.Background(), resp.ReportID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if report.Status != models.ReportStatusPending {
		t.Errorf("status = %q, want pending", report.Status)
	}
	if report.Description != "seniors blocked the hostel corridor" {
		t.Errorf("description not trimmed: %q", report.Description)
	}
	if n := e.store.LocationCount(resp.ReportID); n != 1 {
		t.Errorf("locations = %d, want 1", n)
	}

	if len(e.notifier.Jobs) != 2 {
		t.Fatalf("queued %d jobs, want SMS + one email", len(e.notifier.Jobs))
	}
	kinds := map[string]bool{}
	for _, j := range e.notifier.Jobs {
		kinds[j.Kind] = true
		if j.ReportID == nil || *j.ReportID != resp.ReportID {
			t.Errorf("job %s missing report id", j.Kind)
		}
	}
	if !kinds[notify.KindProctorSMS] || !kinds[notify.KindProctorEmail] {
		t.Errorf("kinds = %v", kinds)
	}
	for _, j := range e.notifier.Jobs {
		if j.Email != nil && j.Email.To != "p1@example.edu" {
			t.Errorf("email sent to %s", j.Email.To)
		}
	}
}

func TestSubmitReportValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.SubmitReportRequest)
	}{
		{"unknown type", func(r *dto.SubmitReportRequest) { r.Type = "theft" }},
		{"blank description", func(r *dto.SubmitReportRequest) { r.Description = "   " }},
		{"latitude out of range", func(r *dto.SubmitReportRequest) { r.Latitude = 91 }},
		{"longitude out of range", func(r *dto.SubmitReportRequest) { r.Longitude = -181 }},
		{"photo outside uploads", func(r *dto.SubmitReportRequest) { r.PhotoPath = strPtr("../etc/passwd") }},
		{"audio in photo dir", func(r *dto.SubmitReportRequest) { r.AudioPath = strPtr("photos/a.webm") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			req := validSubmit()
			tt.mutate(&req)
			if _, err := e.reports.Submit(context.Background(), e.student.ID, req); !isValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
			if len(e.store.EnqueueCalls) != 0 || len(e.notifier.Jobs) != 0 {
				t.Error("nothing should be queued")
			}
		})
	}
}

func TestSubmitReportRequiresVerifiedStudent(t *testing.T) {
	e := newEnv(t)
	pending := e.store.SeedStudent(models.Student{UserID: uuid.New(), Name: "New", DepartmentID: e.dept.ID, IsProfileComplete: true})

	if _, err := e.reports.Submit(context.Background(), pending.ID, validSubmit()); !errors.Is(err, ErrStudentNotVerified) {
		t.Errorf("unverified: err = %v", err)
	}
	if _, err := e.reports.Submit(context.Background(), uuid.New(), validSubmit()); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("unknown: err = %v", err)
	}
}

func TestSubmitReportSurvivesNotifierFailure(t *testing.T) {
	e := newEnv(t)
	e.store.SeedProctor(models.Proctor{Name: "P", Mobile: "01811000000", DepartmentID: e.dept.ID, IsActive: true})
	e.notifier.Err = errors.New("outbox unavailable")

	resp, err := e.reports.Submit(context.Background(), e.student.ID, validSubmit())
	if err != nil {
		t.Fatalf("Submit should succeed when notifications fail: %v", err)
	}
	if _, err := e.reports.GetByID(context.Background(), resp.ReportID); err != nil {
		t.Errorf("report not persisted: %v", err)
	}
}

func TestSubmitReportStoreFailureQueuesNothing(t *testing.T) {
	e := newEnv(t)
	e.store.SeedProctor(models.Proctor{Name: "P", Mobile: "01811000000", DepartmentID: e.dept.ID, IsActive: true})
	e.store.CreateReportError = errors.New("connection reset")

	if _, err := e.reports.Submit(context.Background(), e.student.ID, validSubmit()); err == nil {
		t.Fatal("expected error")
	}
	if len(e.notifier.Jobs) != 0 {
		t.Errorf("queued %d jobs for a report that was never saved", len(e.notifier.Jobs))
	}
}

func TestUpdateStatus(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := e.broker.Subscribe(ctx, live.ReportTopic(report.ID))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	updated, err := e.reports.UpdateStatus(context.Background(), report.ID, dto.UpdateStatusRequest{
		Status:     models.ReportStatusAcknowledged,
		StatusNote: strPtr("   "),
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.ReportStatusAcknowledged {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.StatusNote != nil {
		t.Errorf("blank note stored: %q", *updated.StatusNote)
	}
	if got := string(receive(t, sub)); got != `{"status":"acknowledged"}` {
		t.Errorf("published %s", got)
	}
	if len(e.notifier.Jobs) != 1 {
		t.Fatalf("queued %d jobs, want 1", len(e.notifier.Jobs))
	}
	job := e.notifier.Jobs[0]
	if job.Kind != notify.KindReporterStatus || job.Email.To != e.student.Email {
		t.Errorf("job = %+v", job)
	}

	// Any status may follow any other.
	updated, err = e.reports.UpdateStatus(context.Background(), report.ID, dto.UpdateStatusRequest{
		Status:     models.ReportStatusPending,
		StatusNote: strPtr(" reopened "),
	})
	if err != nil {
		t.Fatalf("UpdateStatus back to pending: %v", err)
	}
	if updated.StatusNote == nil || *updated.StatusNote != "reopened" {
		t.Errorf("note = %v", updated.StatusNote)
	}
}

func TestUpdateStatusSurvivesMailOutage(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())
	e.notifier.Err = errors.New("smtp: connection refused")

	updated, err := e.reports.UpdateStatus(context.Background(), report.ID, dto.UpdateStatusRequest{Status: models.ReportStatusResolved})
	if err != nil {
		t.Fatalf("UpdateStatus should succeed when email fails: %v", err)
	}
	if updated.Status != models.ReportStatusResolved {
		t.Errorf("returned status = %q", updated.Status)
	}
	stored, err := e.reports.GetByID(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.ReportStatusResolved {
		t.Errorf("stored status = %q, want resolved", stored.Status)
	}
}

func TestUpdateStatusErrors(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())

	if _, err := e.reports.UpdateStatus(context.Background(), report.ID, dto.UpdateStatusRequest{Status: "closed"}); !isValidation(err) {
		t.Errorf("invalid status: err = %v", err)
	}
	if _, err := e.reports.UpdateStatus(context.Background(), uuid.New(), dto.UpdateStatusRequest{Status: "resolved"}); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("unknown report: err = %v", err)
	}
	e.store.UpdateReportError = errors.New("deadlock")
	if _, err := e.reports.UpdateStatus(context.Background(), report.ID, dto.UpdateStatusRequest{Status: "resolved"}); err == nil {
		t.Error("expected store error")
	}
	if len(e.notifier.Jobs) != 0 {
		t.Error("no email should be queued when the update fails")
	}
}

func TestGetForReporterHidesOtherStudents(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())

	if _, err := e.reports.GetForReporter(context.Background(), report.ID, e.student.ID); err != nil {
		t.Errorf("owner: %v", err)
	}
	if _, err := e.reports.GetForReporter(context.Background(), report.ID, uuid.New()); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("stranger: err = %v", err)
	}
}

func TestAttachAudio(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())

	got, err := e.reports.AttachAudio(context.Background(), report.ID, e.student.ID, "audio/clip.webm")
	if err != nil {
		t.Fatalf("AttachAudio: %v", err)
	}
	if got.AudioPath == nil || *got.AudioPath != "audio/clip.webm" {
		t.Errorf("audio path = %v", got.AudioPath)
	}
	if _, err := e.reports.AttachAudio(context.Background(), report.ID, uuid.New(), "audio/x.webm"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("stranger: err = %v", err)
	}
}

func TestListForDashboard(t *testing.T) {
	e := newEnv(t)
	base := time.Now().Add(-time.Hour)
	older := e.seedReport(t, base)
	newer := e.seedReport(t, base.Add(time.Minute))

	locs := NewLocationService(e.stores, e.broker)
	if _, err := locs.Append(context.Background(), older.ID, 24.9, 91.8); err != nil {
		t.Fatalf("Append: %v", err)
	}

	items, err := e.reports.ListForDashboard(context.Background(), "")
	if err != nil {
		t.Fatalf("ListForDashboard: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].ID != newer.ID {
		t.Error("newest report should come first")
	}
	if items[0].LatestLocation != nil {
		t.Error("report without locations should have nil latest location")
	}
	if items[1].LatestLocation == nil || items[1].LatestLocation.Latitude != 24.9 {
		t.Errorf("latest = %+v", items[1].LatestLocation)
	}

	if _, err := e.reports.ListForDashboard(context.Background(), "bogus"); !isValidation(err) {
		t.Errorf("bad filter: err = %v", err)
	}
}

func TestListWithReporter(t *testing.T) {
	e := newEnv(t)
	e.seedReport(t, time.Now())

	items, err := e.reports.ListWithReporter(context.Background(), models.ReportStatusPending)
	if err != nil {
		t.Fatalf("ListWithReporter: %v", err)
	}
	if len(items) != 1 || items[0].Reporter == nil {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Reporter.DepartmentName != "Computer Science" {
		t.Errorf("department = %q", items[0].Reporter.DepartmentName)
	}
}

func TestPublicViewOmitsReporter(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())
	photo := "photos/p.jpg"
	e.store.SeedReport(func() models.Report { r := report; r.PhotoPath = &photo; return r }())

	view, err := e.reports.PublicView(context.Background(), report.PublicToken, func(key string) string {
		return "/api/files/" + key
	})
	if err != nil {
		t.Fatalf("PublicView: %v", err)
	}
	if view.PhotoURL != "/api/files/photos/p.jpg" {
		t.Errorf("photo url = %q", view.PhotoURL)
	}
	if view.LatestLocation != nil {
		t.Error("expected nil latest location")
	}
	raw, _ := json.Marshal(view)
	if strings.Contains(string(raw), e.student.Name) || strings.Contains(string(raw), e.student.Mobile) {
		t.Errorf("public view leaks reporter identity: %s", raw)
	}

	if _, err := e.reports.PublicView(context.Background(), "missing", nil); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("unknown token: err = %v", err)
	}
}

package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/google/uuid"
)

type SubmitReportRequest struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	PhotoPath   *string `json:"photo_path,omitempty"`
	AudioPath   *string `json:"audio_path,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type SubmitReportResponse struct {
	ReportID    uuid.UUID `json:"report_id"`
	PublicToken string    `json:"public_token"`
	ShareLink   string    `json:"share_link"`
}

type UpdateStatusRequest struct {
	Status     string  `json:"status"`
	StatusNote *string `json:"status_note,omitempty"`
}

type AttachAudioRequest struct {
	AudioPath string `json:"audio_path"`
}

type AppendLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ReporterSummary is the student join used by staff list views.
type ReporterSummary struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Mobile             string `json:"mobile"`
	RegistrationNumber string `json:"registration_number"`
	DepartmentName     string `json:"department_name"`
}

type ReportWithReporter struct {
	models.Report
	Reporter *ReporterSummary `json:"reporter"`
}

type DashboardReport struct {
	models.Report
	LatestLocation *models.ReportLocation `json:"latest_location"`
}

// PublicReport is what a share-link holder may see. It carries no reporter
// identity.
type PublicReport struct {
	Type           string                 `json:"type"`
	Description    string                 `json:"description"`
	Status         string                 `json:"status"`
	PhotoURL       string                 `json:"photo_url,omitempty"`
	AudioURL       string                 `json:"audio_url,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	LatestLocation *models.ReportLocation `json:"latest_location"`
}

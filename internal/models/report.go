package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReportTypeRagging = "ragging"
	ReportTypeSafety  = "safety"

	ReportStatusPending      = "pending"
	ReportStatusAcknowledged = "acknowledged"
	ReportStatusResolved     = "resolved"
)

func ValidReportType(t string) bool {
	return t == ReportTypeRagging || t == ReportTypeSafety
}

// ValidReportStatus checks the enum only. Any status may follow any other.
func ValidReportStatus(s string) bool {
	switch s {
	case ReportStatusPending, ReportStatusAcknowledged, ReportStatusResolved:
		return true
	}
	return false
}

// Report is a ragging/safety incident filed by a student. PublicToken grants
// anonymous read access through the share link.
type Report struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReporterID  uuid.UUID `gorm:"type:uuid;not null;index" json:"reporter_id"`
	Type        string    `gorm:"size:20;not null" json:"type"`
	Description string    `gorm:"type:text;not null" json:"description"`
	PhotoPath   *string   `gorm:"size:255" json:"photo_path,omitempty"`
	AudioPath   *string   `gorm:"size:255" json:"audio_path,omitempty"`
	Status      string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	StatusNote  *string   `gorm:"type:text" json:"status_note,omitempty"`
	PublicToken string    `gorm:"size:32;not null;uniqueIndex" json:"public_token"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Reporter    *Student  `gorm:"foreignKey:ReporterID" json:"-"`
}

// ReportLocation is an append-only position log. Rows are never updated.
type ReportLocation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID  uuid.UUID `gorm:"type:uuid;not null;index:idx_report_locations_report_ts,priority:1" json:"report_id"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	Timestamp time.Time `gorm:"not null;index:idx_report_locations_report_ts,priority:2" json:"timestamp"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// NotificationJob is a row of the notification outbox.
type NotificationJob struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind          string         `gorm:"size:50;not null;index" json:"kind"`
	ReportID      *uuid.UUID     `gorm:"type:uuid;index" json:"report_id,omitempty"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status        string         `gorm:"size:20;not null;default:'pending';index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt time.Time      `gorm:"not null;index:idx_outbox_due,priority:2" json:"next_attempt_at"`
	LastError     string         `gorm:"type:text" json:"last_error,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (NotificationJob) TableName() string {
	return "notification_outbox"
}

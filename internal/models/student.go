package models

import (
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID                 uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID             uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Name               string      `gorm:"size:255;not null" json:"name"`
	Email              string      `gorm:"size:255;not null" json:"email"`
	Mobile             string      `gorm:"size:32;not null" json:"mobile"`
	RegistrationNumber string      `gorm:"size:64;not null;index" json:"registration_number"`
	DepartmentID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"department_id"`
	PresentAddress     string      `gorm:"type:text" json:"present_address"`
	SelfiePhotoPath    string      `gorm:"size:255" json:"selfie_photo_path"`
	IDCardPhotoPath    string      `gorm:"size:255" json:"id_card_photo_path"`
	IsProfileComplete  bool        `gorm:"not null;default:false" json:"is_profile_complete"`
	IsVerified         bool        `gorm:"not null;default:false;index" json:"is_verified"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	Department         *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// CanReport is the dashboard gate: profile completed and verified by an admin.
func (s *Student) CanReport() bool {
	return s.IsProfileComplete && s.IsVerified
}

// DepartmentName returns the joined department name or "—" when it is missing.
func (s *Student) DepartmentName() string {
	if s.Department == nil || s.Department.Name == "" {
		return "—"
	}
	return s.Department.Name
}

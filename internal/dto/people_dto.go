package dto

import (
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/google/uuid"
)

type CompleteProfileRequest struct {
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Mobile             string    `json:"mobile"`
	RegistrationNumber string    `json:"registration_number"`
	DepartmentID       uuid.UUID `json:"department_id"`
	PresentAddress     string    `json:"present_address"`
	SelfiePhotoPath    string    `json:"selfie_photo_path"`
	IDCardPhotoPath    string    `json:"id_card_photo_path"`
}

// UpdateStudentRequest is a partial update; nil fields are left alone.
type UpdateStudentRequest struct {
	Name               *string    `json:"name,omitempty"`
	Email              *string    `json:"email,omitempty"`
	Mobile             *string    `json:"mobile,omitempty"`
	RegistrationNumber *string    `json:"registration_number,omitempty"`
	DepartmentID       *uuid.UUID `json:"department_id,omitempty"`
	PresentAddress     *string    `json:"present_address,omitempty"`
}

type VerifyRequest struct {
	IsVerified bool `json:"is_verified"`
}

type InviteCorrespondentRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

type UpdateCorrespondentRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Mobile *string `json:"mobile,omitempty"`
}

type CreateProctorRequest struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	DepartmentID uuid.UUID `json:"department_id"`
}

type UpdateProctorRequest struct {
	Name         *string    `json:"name,omitempty"`
	Email        *string    `json:"email,omitempty"`
	Mobile       *string    `json:"mobile,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
}

type CreateDepartmentRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type UpdateDepartmentRequest struct {
	Name *string `json:"name,omitempty"`
	Code *string `json:"code,omitempty"`
}

type MeResponse struct {
	User          models.User           `json:"user"`
	Student       *models.Student       `json:"student,omitempty"`
	Correspondent *models.Correspondent `json:"correspondent,omitempty"`
	// CanReport is the student dashboard gate.
	CanReport bool `json:"can_report"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
)

type StudentService struct {
	students    repository.StudentRepository
	departments repository.DepartmentRepository
}

func NewStudentService(stores Stores) *StudentService {
	return &StudentService{students: stores.Students, departments: stores.Departments}
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// CompleteProfile creates the student row once. Every field is required and
// the account stays unverified until an admin approves it.
func (s *StudentService) CompleteProfile(ctx context.Context, userID uuid.UUID, req dto.CompleteProfileRequest) (*models.Student, error) {
	st := &models.Student{
		ID:                 uuid.New(),
		UserID:             userID,
		Name:               strings.TrimSpace(req.Name),
		Email:              strings.TrimSpace(req.Email),
		Mobile:             strings.TrimSpace(req.Mobile),
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		DepartmentID:       req.DepartmentID,
		PresentAddress:     strings.TrimSpace(req.PresentAddress),
		SelfiePhotoPath:    strings.TrimSpace(req.SelfiePhotoPath),
		IDCardPhotoPath:    strings.TrimSpace(req.IDCardPhotoPath),
		IsProfileComplete:  true,
	}

	required := map[string]string{
		"name":                st.Name,
		"email":               st.Email,
		"mobile":              st.Mobile,
		"registration_number": st.RegistrationNumber,
		"present_address":     st.PresentAddress,
		"selfie_photo_path":   st.SelfiePhotoPath,
		"id_card_photo_path":  st.IDCardPhotoPath,
	}
	for _, field := range []string{"name", "email", "mobile", "registration_number", "present_address", "selfie_photo_path", "id_card_photo_path"} {
		if required[field] == "" {
			return nil, invalid("%s is required", field)
		}
	}
	if !validEmail(st.Email) {
		return nil, invalid("email is not a valid address")
	}
	if !validUpload(&st.SelfiePhotoPath, "photos") || !validUpload(&st.IDCardPhotoPath, "photos") {
		return nil, invalid("profile photos must be uploaded images")
	}
	if st.DepartmentID == uuid.Nil {
		return nil, invalid("department_id is required")
	}
	if _, err := s.departments.FindByID(ctx, st.DepartmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("department does not exist")
		}
		return nil, fmt.Errorf("failed to load department: %w", err)
	}

	if _, err := s.students.FindByUserID(ctx, userID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check profile: %w", err)
	}

	if err := s.students.Create(ctx, st); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrProfileExists
		}
		return nil, fmt.Errorf("failed to create student profile: %w", err)
	}
	slog.Info("student profile completed", "action", "profile_completed", "user_id", userID.String())
	return s.GetByID(ctx, st.ID)
}

func (s *StudentService) GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	st, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	return st, nil
}

func (s *StudentService) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error) {
	st, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	return st, nil
}

// GetWithDepartment is the reporter block shown to staff: contact details plus the
// department name.
func (s *StudentService) GetWithDepartment(ctx context.Context, id uuid.UUID) (*dto.ReporterSummary, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return reporterSummary(st), nil
}

func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	return s.list(ctx, repository.StudentFilter{})
}

// ListPendingVerification returns completed, unverified profiles.
func (s *StudentService) ListPendingVerification(ctx context.Context) ([]models.Student, error) {
	return s.list(ctx, repository.StudentFilter{PendingVerification: true})
}

func (s *StudentService) list(ctx context.Context, f repository.StudentFilter) ([]models.Student, error) {
	out, err := s.students.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if out == nil {
		out = []models.Student{}
	}
	return out, nil
}

func (s *StudentService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateStudentRequest) (*models.Student, error) {
	fields := repository.Fields{}
	trimmedPatch(fields, "name", req.Name)
	trimmedPatch(fields, "email", req.Email)
	trimmedPatch(fields, "mobile", req.Mobile)
	trimmedPatch(fields, "registration_number", req.RegistrationNumber)
	trimmedPatch(fields, "present_address", req.PresentAddress)
	for _, key := range []string{"name", "email", "mobile", "registration_number"} {
		if v, ok := fields[key]; ok && v.(string) == "" {
			return nil, invalid("%s cannot be blank", key)
		}
	}
	if v, ok := fields["email"]; ok && !validEmail(v.(string)) {
		return nil, invalid("email is not a valid address")
	}
	if req.DepartmentID != nil {
		if _, err := s.departments.FindByID(ctx, *req.DepartmentID); err != nil {
			return nil, notFound(err, ErrDepartmentNotFound)
		}
		fields["department_id"] = *req.DepartmentID
	}
	if err := s.students.Update(ctx, id, fields); err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	return s.GetByID(ctx, id)
}

// Verify flips the admin approval flag that gates reporting.
func (s *StudentService) Verify(ctx context.Context, id uuid.UUID, verified bool) (*models.Student, error) {
	if err := s.students.Update(ctx, id, repository.Fields{"is_verified": verified}); err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	slog.Info("student verification changed", "action", "student_verified", "student_id", id.String(), "verified", verified)
	return s.GetByID(ctx, id)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
)

// DirectoryService manages departments and proctors, the admin-maintained
// reference data behind profiles and alerts.
type DirectoryService struct {
	departments repository.DepartmentRepository
	proctors    repository.ProctorRepository
}

func NewDirectoryService(stores Stores) *DirectoryService {
	return &DirectoryService{departments: stores.Departments, proctors: stores.Proctors}
}

func (s *DirectoryService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	out, err := s.departments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	if out == nil {
		out = []models.Department{}
	}
	return out, nil
}

func (s *DirectoryService) CreateDepartment(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error) {
	d := &models.Department{
		ID:   uuid.New(),
		Name: strings.TrimSpace(req.Name),
		Code: strings.ToUpper(strings.TrimSpace(req.Code)),
	}
	if d.Name == "" || d.Code == "" {
		return nil, invalid("name and code are required")
	}
	if err := s.departments.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateDepartment
		}
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return d, nil
}

func (s *DirectoryService) UpdateDepartment(ctx context.Context, id uuid.UUID, req dto.UpdateDepartmentRequest) (*models.Department, error) {
	fields := repository.Fields{}
	trimmedPatch(fields, "name", req.Name)
	if req.Code != nil {
		fields["code"] = strings.ToUpper(strings.TrimSpace(*req.Code))
	}
	for k, v := range fields {
		if v.(string) == "" {
			return nil, invalid("%s cannot be blank", k)
		}
	}
	if err := s.departments.Update(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateDepartment
		}
		return nil, notFound(err, ErrDepartmentNotFound)
	}
	d, err := s.departments.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDepartmentNotFound)
	}
	return d, nil
}

func (s *DirectoryService) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	return notFound(s.departments.Delete(ctx, id), ErrDepartmentNotFound)
}

// ListProctors includes inactive proctors unless activeOnly is set.
func (s *DirectoryService) ListProctors(ctx context.Context, activeOnly bool) ([]models.Proctor, error) {
	out, err := s.proctors.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list proctors: %w", err)
	}
	if out == nil {
		out = []models.Proctor{}
	}
	return out, nil
}

// CreateProctor requires at least one contact channel; a proctor with
// neither could never be alerted.
func (s *DirectoryService) CreateProctor(ctx context.Context, req dto.CreateProctorRequest) (*models.Proctor, error) {
	p := &models.Proctor{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Mobile:       strings.TrimSpace(req.Mobile),
		DepartmentID: req.DepartmentID,
		IsActive:     true,
	}
	if p.Name == "" {
		return nil, invalid("name is required")
	}
	if p.Email == "" && p.Mobile == "" {
		return nil, invalid("email or mobile is required")
	}
	if p.Email != "" && !validEmail(p.Email) {
		return nil, invalid("email is not a valid address")
	}
	if _, err := s.departments.FindByID(ctx, p.DepartmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("department does not exist")
		}
		return nil, fmt.Errorf("failed to load department: %w", err)
	}
	if err := s.proctors.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create proctor: %w", err)
	}
	return p, nil
}

func (s *DirectoryService) UpdateProctor(ctx context.Context, id uuid.UUID, req dto.UpdateProctorRequest) (*models.Proctor, error) {
	fields := repository.Fields{}
	trimmedPatch(fields, "name", req.Name)
	trimmedPatch(fields, "email", req.Email)
	trimmedPatch(fields, "mobile", req.Mobile)
	if v, ok := fields["name"]; ok && v.(string) == "" {
		return nil, invalid("name cannot be blank")
	}
	if v, ok := fields["email"]; ok && v.(string) != "" && !validEmail(v.(string)) {
		return nil, invalid("email is not a valid address")
	}
	if req.DepartmentID != nil {
		if _, err := s.departments.FindByID(ctx, *req.DepartmentID); err != nil {
			return nil, notFound(err, ErrDepartmentNotFound)
		}
		fields["department_id"] = *req.DepartmentID
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if err := s.proctors.Update(ctx, id, fields); err != nil {
		return nil, notFound(err, ErrProctorNotFound)
	}
	p, err := s.proctors.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProctorNotFound)
	}
	return p, nil
}

func (s *DirectoryService) DeleteProctor(ctx context.Context, id uuid.UUID) error {
	return notFound(s.proctors.Delete(ctx, id), ErrProctorNotFound)
}

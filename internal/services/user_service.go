package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
)

type UserService struct {
	users          repository.UserRepository
	students       repository.StudentRepository
	correspondents repository.CorrespondentRepository
}

func NewUserService(stores Stores) *UserService {
	return &UserService{
		users:          stores.Users,
		students:       stores.Students,
		correspondents: stores.Correspondents,
	}
}

// SyncFromIdentity mirrors an identity account locally. The identity
// provider owns the role, so an existing row has its role overwritten.
func (s *UserService) SyncFromIdentity(ctx context.Context, externalID, role string) (*models.User, error) {
	if externalID == "" {
		return nil, invalid("external id is required")
	}
	if !models.ValidRole(role) {
		return nil, invalid("unknown role %q", role)
	}

	existing, err := s.users.FindByExternalID(ctx, externalID)
	switch {
	case err == nil:
		if existing.Role != role {
			if err := s.users.Update(ctx, existing.ID, repository.Fields{"role": role}); err != nil {
				return nil, fmt.Errorf("failed to update user role: %w", err)
			}
			existing.Role = role
		}
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user := &models.User{ID: uuid.New(), ExternalID: externalID, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent webhook or request.
			return s.SyncFromIdentity(ctx, externalID, role)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("user mirrored", "action", "user_synced", "user_id", user.ID.String(), "role", role)
	return user, nil
}

// EnsureAccount returns the local user for an authenticated session,
// creating it with role when the webhook has not arrived yet. An existing
// row keeps its role.
func (s *UserService) EnsureAccount(ctx context.Context, externalID, role string) (*models.User, error) {
	u, err := s.users.FindByExternalID(ctx, externalID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !models.ValidRole(role) {
		role = models.RoleStudent
	}
	user := &models.User{ID: uuid.New(), ExternalID: externalID, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.users.FindByExternalID(ctx, externalID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	u, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *UserService) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	if !models.ValidRole(role) {
		return invalid("unknown role %q", role)
	}
	return notFound(s.users.Update(ctx, id, repository.Fields{"role": role}), ErrUserNotFound)
}

func (s *UserService) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return notFound(s.users.Update(ctx, id, repository.Fields{"is_verified": verified}), ErrUserNotFound)
}

// Me assembles the signed-in account with whichever profile its role has.
func (s *UserService) Me(ctx context.Context, user *models.User) (*dto.MeResponse, error) {
	resp := &dto.MeResponse{User: *user}
	switch user.Role {
	case models.RoleStudent:
		st, err := s.students.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load student profile: %w", err)
		}
		if st != nil {
			resp.Student = st
			resp.CanReport = st.CanReport()
		}
	case models.RoleCorrespondent:
		c, err := s.correspondents.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load correspondent profile: %w", err)
		}
		resp.Correspondent = c
	}
	return resp, nil
}

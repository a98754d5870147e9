package repository

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

var _ UserRepository = (*UserStore)(nil)

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *UserStore) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "external_id = ?", externalID).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *UserStore) Update(ctx context.Context, id uuid.UUID, fields Fields) error {
	return updateByID(ctx, s.db, &models.User{}, id, fields)
}

type DepartmentStore struct{ db *gorm.DB }

var _ DepartmentRepository = (*DepartmentStore)(nil)

func (s *DepartmentStore) List(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (s *DepartmentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	var d models.Department
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *DepartmentStore) Create(ctx context.Context, d *models.Department) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

func (s *DepartmentStore) Update(ctx context.Context, id uuid.UUID, fields Fields) error {
	return updateByID(ctx, s.db, &models.Department{}, id, fields)
}

func (s *DepartmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, &models.Department{}, id)
}

type StudentStore struct{ db *gorm.DB }

var _ StudentRepository = (*StudentStore)(nil)

func (s *StudentStore) Create(ctx context.Context, st *models.Student) error {
	return translate(s.db.WithContext(ctx).Omit("Department").Create(st).Error)
}

func (s *StudentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var st models.Student
	if err := s.db.WithContext(ctx).Preload("Department").First(&st, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *StudentStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error) {
	var st models.Student
	if err := s.db.WithContext(ctx).Preload("Department").First(&st, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *StudentStore) List(ctx context.Context, filter StudentFilter) ([]models.Student, error) {
	q := s.db.WithContext(ctx).Preload("Department").Order("created_at DESC")
	if filter.PendingVerification {
		q = q.Where("is_profile_complete = ? AND is_verified = ?", true, false)
	}
	var out []models.Student
	err := q.Find(&out).Error
	return out, err
}

func (s *StudentStore) Update(ctx context.Context, id uuid.UUID, fields Fields) error {
	return updateByID(ctx, s.db, &models.Student{}, id, fields)
}

type CorrespondentStore struct{ db *gorm.DB }

var _ CorrespondentRepository = (*CorrespondentStore)(nil)

func (s *CorrespondentStore) Create(ctx context.Context, c *models.Correspondent) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *CorrespondentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Correspondent, error) {
	var c models.Correspondent
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *CorrespondentStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Correspondent, error) {
	var c models.Correspondent
	if err := s.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *CorrespondentStore) List(ctx context.Context) ([]models.Correspondent, error) {
	var out []models.Correspondent
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *CorrespondentStore) Update(ctx context.Context, id uuid.UUID, fields Fields) error {
	return updateByID(ctx, s.db, &models.Correspondent{}, id, fields)
}

type ProctorStore struct{ db *gorm.DB }

var _ ProctorRepository = (*ProctorStore)(nil)

func (s *ProctorStore) List(ctx context.Context, activeOnly bool) ([]models.Proctor, error) {
	q := s.db.WithContext(ctx).Preload("Department").Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Proctor
	err := q.Find(&out).Error
	return out, err
}

func (s *ProctorStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Proctor, error) {
	var p models.Proctor
	if err := s.db.WithContext(ctx).Preload("Department").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *ProctorStore) Create(ctx context.Context, p *models.Proctor) error {
	return translate(s.db.WithContext(ctx).Omit("Department").Create(p).Error)
}

func (s *ProctorStore) Update(ctx context.Context, id uuid.UUID, fields Fields) error {
	return updateByID(ctx, s.db, &models.Proctor{}, id, fields)
}

func (s *ProctorStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, &models.Proctor{}, id)
}

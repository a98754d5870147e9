// Package repository holds the persistence ports used by the services and
// their GORM/PostgreSQL adapters.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Fields is a partial update keyed by column name.
type Fields map[string]interface{}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id uuid.UUID, fields Fields) error
}

type DepartmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Department, error)
	Create(ctx context.Context, d *models.Department) error
	Update(ctx context.Context, id uuid.UUID, fields Fields) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type StudentFilter struct {
	PendingVerification bool
}

type StudentRepository interface {
	Create(ctx context.Context, s *models.Student) error
	// FindByID and FindByUserID preload the department.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error)
	List(ctx context.Context, filter StudentFilter) ([]models.Student, error)
	Update(ctx context.Context, id uuid.UUID, fields Fields) error
}

type CorrespondentRepository interface {
	Create(ctx context.Context, c *models.Correspondent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Correspondent, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Correspondent, error)
	List(ctx context.Context) ([]models.Correspondent, error)
	Update(ctx context.Context, id uuid.UUID, fields Fields) error
}

type ProctorRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Proctor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Proctor, error)
	Create(ctx context.Context, p *models.Proctor) error
	Update(ctx context.Context, id uuid.UUID, fields Fields) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReportFilter struct {
	ReporterID   *uuid.UUID
	Status       string
	WithReporter bool
}

type ReportRepository interface {
	// CreateWithLocation writes the report and its first location in one transaction.
	CreateWithLocation(ctx context.Context, r *models.Report, loc *models.ReportLocation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	FindByToken(ctx context.Context, token string) (*models.Report, error)
	// List returns newest first.
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	Update(ctx context.Context, id uuid.UUID, fields Fields) error
}

type LocationRepository interface {
	Append(ctx context.Context, loc *models.ReportLocation) error
	// Latest returns the row with the greatest timestamp, ties broken by id.
	Latest(ctx context.Context, reportID uuid.UUID) (*models.ReportLocation, error)
	History(ctx context.Context, reportID uuid.UUID, limit int) ([]models.ReportLocation, error)
	LatestForReports(ctx context.Context, reportIDs []uuid.UUID) (map[uuid.UUID]models.ReportLocation, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, jobs []models.NotificationJob) error
	// ClaimDue leases up to limit due pending jobs, bumping their attempt count
	// and pushing next_attempt_at forward by lease so other relays skip them.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.NotificationJob, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error
}

// Repositories bundles the GORM adapters sharing one connection pool.
type Repositories struct {
	Users          *UserStore
	Departments    *DepartmentStore
	Students       *StudentStore
	Correspondents *CorrespondentStore
	Proctors       *ProctorStore
	Reports        *ReportStore
	Locations      *LocationStore
	Outbox         *OutboxStore
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:          &UserStore{db: db},
		Departments:    &DepartmentStore{db: db},
		Students:       &StudentStore{db: db},
		Correspondents: &CorrespondentStore{db: db},
		Proctors:       &ProctorStore{db: db},
		Reports:        &ReportStore{db: db},
		Locations:      &LocationStore{db: db},
		Outbox:         &OutboxStore{db: db},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func updateByID(ctx context.Context, db *gorm.DB, model interface{}, id uuid.UUID, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(map[string]interface{}(fields))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, db *gorm.DB, model interface{}, id uuid.UUID) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

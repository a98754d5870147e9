package repository

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportStore struct{ db *gorm.DB }

var _ ReportRepository = (*ReportStore)(nil)

func (s *ReportStore) CreateWithLocation(ctx context.Context, r *models.Report, loc *models.ReportLocation) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Reporter").Create(r).Error; err != nil {
			return err
		}
		loc.ReportID = r.ID
		return tx.Create(loc).Error
	}))
}

func (s *ReportStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *ReportStore) FindByToken(ctx context.Context, token string) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).First(&r, "public_token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *ReportStore) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.ReporterID != nil {
		q = q.Where("reporter_id = ?", *filter.ReporterID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.WithReporter {
		q = q.Preload("Reporter.Department")
	}
	var out []models.Report
	err := q.Find(&out).Error
	return out, err
}

func (s *ReportStore) Update(ctx context.Context, id uuid.UUID, fields Fields) error {
	return updateByID(ctx, s.db, &models.Report{}, id, fields)
}

type LocationStore struct{ db *gorm.DB }

var _ LocationRepository = (*LocationStore)(nil)

func (s *LocationStore) Append(ctx context.Context, loc *models.ReportLocation) error {
	return s.db.WithContext(ctx).Create(loc).Error
}

func (s *LocationStore) Latest(ctx context.Context, reportID uuid.UUID) (*models.ReportLocation, error) {
	var loc models.ReportLocation
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("timestamp DESC, id DESC").
		Take(&loc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &loc, nil
}

func (s *LocationStore) History(ctx context.Context, reportID uuid.UUID, limit int) ([]models.ReportLocation, error) {
	q := s.db.WithContext(ctx).Where("report_id = ?", reportID).Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.ReportLocation
	err := q.Find(&out).Error
	return out, err
}

func (s *LocationStore) LatestForReports(ctx context.Context, reportIDs []uuid.UUID) (map[uuid.UUID]models.ReportLocation, error) {
	out := make(map[uuid.UUID]models.ReportLocation, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}
	var rows []models.ReportLocation
	err := s.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (report_id) id, report_id, latitude, longitude, timestamp
			FROM report_locations
			WHERE report_id IN ?
			ORDER BY report_id, timestamp DESC, id DESC`, reportIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ReportID] = r
	}
	return out, nil
}

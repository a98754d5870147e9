package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
)

const maxHistory = 500

// LocationService keeps the append-only location log and fans each point
// out to live subscribers.
type LocationService struct {
	reports   repository.ReportRepository
	locations repository.LocationRepository
	live      Publisher
	now       func() time.Time
}

func NewLocationService(stores Stores, live Publisher) *LocationService {
	return &LocationService{
		reports:   stores.Reports,
		locations: stores.Locations,
		live:      live,
		now:       time.Now,
	}
}

// Append stamps the point with server time. Client clocks are not trusted.
func (s *LocationService) Append(ctx context.Context, reportID uuid.UUID, lat, lng float64) (*models.ReportLocation, error) {
	if !validCoordinates(lat, lng) {
		return nil, invalid("latitude/longitude out of range")
	}
	if _, err := s.reports.FindByID(ctx, reportID); err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	loc := &models.ReportLocation{
		ReportID:  reportID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: s.now().UTC(),
	}
	if err := s.locations.Append(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to append location: %w", err)
	}
	publishLocation(ctx, s.live, *loc)
	return loc, nil
}

// Latest returns nil without error when nothing has been recorded.
func (s *LocationService) Latest(ctx context.Context, reportID uuid.UUID) (*models.ReportLocation, error) {
	loc, err := s.locations.Latest(ctx, reportID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest location: %w", err)
	}
	return loc, nil
}

// History returns newest first, capped at maxHistory points.
func (s *LocationService) History(ctx context.Context, reportID uuid.UUID, limit int) ([]models.ReportLocation, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	if _, err := s.reports.FindByID(ctx, reportID); err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	out, err := s.locations.History(ctx, reportID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load location history: %w", err)
	}
	if out == nil {
		out = []models.ReportLocation{}
	}
	return out, nil
}

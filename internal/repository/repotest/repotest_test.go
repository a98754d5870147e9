package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/google/uuid"
)

func TestLocationsLatestOrdersByTimestamp(t *testing.T) {
	s := NewStore()
	locs := s.Locations()
	ctx := context.Background()
	reportID := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	points := []models.ReportLocation{
		{ReportID: reportID, Latitude: 1, Timestamp: at},
		{ReportID: reportID, Latitude: 2, Timestamp: at.Add(time.Minute)},
		{ReportID: reportID, Latitude: 3, Timestamp: at.Add(-time.Minute)},
		{ReportID: uuid.New(), Latitude: 4, Timestamp: at.Add(time.Hour)},
	}
	for i := range points {
		if err := locs.Append(ctx, &points[i]); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	latest, err := locs.Latest(ctx, reportID)
	if err != nil || latest.Latitude != 2 {
		t.Fatalf("Latest = %+v, %v, want latitude 2", latest, err)
	}
	byReport, err := locs.LatestForReports(ctx, []uuid.UUID{reportID, uuid.New()})
	if err != nil {
		t.Fatalf("LatestForReports: %v", err)
	}
	if len(byReport) != 1 || byReport[reportID].Latitude != 2 {
		t.Errorf("LatestForReports = %+v", byReport)
	}

	// Equal timestamps fall back to insertion order.
	tie := models.ReportLocation{ReportID: reportID, Latitude: 5, Timestamp: at.Add(time.Minute)}
	if err := locs.Append(ctx, &tie); err != nil {
		t.Fatal(err)
	}
	if latest, _ := locs.Latest(ctx, reportID); latest.Latitude != 5 {
		t.Errorf("tie: latest latitude = %v, want 5", latest.Latitude)
	}
}

package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxChannel is the LISTEN/NOTIFY channel signalled on every enqueue.
const OutboxChannel = "notification_outbox"

type OutboxStore struct{ db *gorm.DB }

var _ OutboxRepository = (*OutboxStore)(nil)

func (s *OutboxStore) Enqueue(ctx context.Context, jobs []models.NotificationJob) error {
	if len(jobs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&jobs).Error; err != nil {
			return err
		}
		return tx.Exec("SELECT pg_notify(?, '')", OutboxChannel).Error
	})
}

func (s *OutboxStore) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.NotificationJob, error) {
	var jobs []models.NotificationJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", models.NotificationPending, now).
			Order("next_attempt_at ASC").
			Limit(limit).
			Find(&jobs).Error
		if err != nil || len(jobs) == 0 {
			return err
		}
		ids := make([]uuid.UUID, len(jobs))
		for i := range jobs {
			ids[i] = jobs[i].ID
			jobs[i].Attempts++
			jobs[i].NextAttemptAt = now.Add(lease)
		}
		return tx.Model(&models.NotificationJob{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"attempts":        gorm.Expr("attempts + 1"),
				"next_attempt_at": now.Add(lease),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *OutboxStore) FindByID(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error) {
	var job models.NotificationJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return updateByID(ctx, s.db, &models.NotificationJob{}, id, Fields{
		"status":     models.NotificationSent,
		"sent_at":    at,
		"last_error": "",
	})
}

func (s *OutboxStore) MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error {
	return updateByID(ctx, s.db, &models.NotificationJob{}, id, Fields{
		"next_attempt_at": next,
		"last_error":      lastErr,
	})
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	return updateByID(ctx, s.db, &models.NotificationJob{}, id, Fields{
		"status":     models.NotificationFailed,
		"last_error": lastErr,
	})
}

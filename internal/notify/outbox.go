package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
)

// Outbox records jobs for the relay. It is the second phase of every
// write-then-notify flow: the domain row is already committed.
type Outbox struct {
	repo repository.OutboxRepository
	wake func()
}

// NewOutbox takes an optional wake callback, used to nudge an in-process relay.
func NewOutbox(repo repository.OutboxRepository, wake func()) *Outbox {
	return &Outbox{repo: repo, wake: wake}
}

func (o *Outbox) Enqueue(ctx context.Context, jobs ...Job) error {
	if len(jobs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.NotificationJob, 0, len(jobs))
	for _, j := range jobs {
		row, err := toRow(j, now)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := o.repo.Enqueue(ctx, rows); err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}
	if o.wake != nil {
		o.wake()
	}
	return nil
}

func toRow(j Job, now time.Time) (models.NotificationJob, error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return models.NotificationJob{}, fmt.Errorf("encode %s job: %w", j.Kind, err)
	}
	return models.NotificationJob{
		ID:            j.ID,
		Kind:          j.Kind,
		ReportID:      j.ReportID,
		Payload:       payload,
		Status:        models.NotificationPending,
		NextAttemptAt: now,
	}, nil
}

func fromRow(row models.NotificationJob) (Job, error) {
	var j Job
	if err := json.Unmarshal(row.Payload, &j); err != nil {
		return Job{}, err
	}
	j.ID = row.ID
	return j, nil
}

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/getsentry/sentry-go"
	"github.com/lib/pq"
)

type RelayConfig struct {
	MaxAttempts   int
	BatchSize     int
	Lease         time.Duration
	SweepInterval time.Duration
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	// ListenDSN enables LISTEN/NOTIFY wake-ups. Empty means sweep only.
	ListenDSN string
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxAttempts:   5,
		BatchSize:     20,
		Lease:         2 * time.Minute,
		SweepInterval: 30 * time.Second,
		BaseDelay:     30 * time.Second,
		MaxDelay:      30 * time.Minute,
	}
}

// Relay drains due outbox jobs into a transport.
type Relay struct {
	repo      repository.OutboxRepository
	transport Sender
	cfg       RelayConfig
	wake      chan struct{}
	now       func() time.Time
}

func NewRelay(repo repository.OutboxRepository, transport Sender, cfg RelayConfig) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Relay{
		repo:      repo,
		transport: transport,
		cfg:       cfg,
		wake:      make(chan struct{}, 1),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Wake asks Run to process due jobs now. It never blocks.
func (r *Relay) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run processes jobs on wake-ups, notifications and a periodic sweep until
// ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	var notifications <-chan *pq.Notification
	if r.cfg.ListenDSN != "" {
		listener := pq.NewListener(r.cfg.ListenDSN, 10*time.Second, time.Minute,
			func(ev pq.ListenerEventType, err error) {
				if err != nil {
					slog.Warn("outbox listener error", "error", err)
				}
			})
		defer listener.Close()
		if err := listener.Listen(repository.OutboxChannel); err != nil {
			return fmt.Errorf("listen %s: %w", repository.OutboxChannel, err)
		}
		notifications = listener.Notify
		slog.Info("outbox relay listening", "channel", repository.OutboxChannel)
	}

	sweep := r.cfg.SweepInterval
	if sweep <= 0 {
		sweep = 30 * time.Second
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	r.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
		case <-notifications:
			// A nil notification means the listener reconnected; sweeping
			// covers anything missed in between.
		case <-ticker.C:
		}
		r.drain(ctx)
	}
}

func (r *Relay) drain(ctx context.Context) {
	if _, err := r.ProcessDue(ctx); err != nil && ctx.Err() == nil {
		slog.Error("outbox processing failed", "action", "outbox_drain", "error", err)
	}
}

// ProcessDue settles every job due now and returns how many it handled.
func (r *Relay) ProcessDue(ctx context.Context) (int, error) {
	handled := 0
	for {
		rows, err := r.repo.ClaimDue(ctx, r.now(), r.cfg.BatchSize, r.cfg.Lease)
		if err != nil {
			return handled, fmt.Errorf("claim due jobs: %w", err)
		}
		for _, row := range rows {
			r.settle(ctx, row)
			handled++
		}
		if len(rows) < r.cfg.BatchSize || ctx.Err() != nil {
			return handled, nil
		}
	}
}

func (r *Relay) settle(ctx context.Context, row models.NotificationJob) {
	job, err := fromRow(row)
	if err != nil {
		job = Job{ID: row.ID, Kind: row.Kind, ReportID: row.ReportID}
		r.fail(ctx, job, fmt.Errorf("decode payload: %w", err))
		return
	}

	sendErr := r.transport.Send(ctx, job)
	if sendErr == nil {
		if err := r.repo.MarkSent(ctx, job.ID, r.now()); err != nil {
			slog.Error("mark notification sent failed", "job_id", job.ID, "error", err)
		}
		outboxProcessed.WithLabelValues("sent").Inc()
		return
	}

	if row.Attempts >= r.cfg.MaxAttempts {
		r.fail(ctx, job, sendErr)
		return
	}

	next := r.now().Add(r.retryDelay(row.Attempts))
	if err := r.repo.MarkRetry(ctx, job.ID, next, sendErr.Error()); err != nil {
		slog.Error("schedule notification retry failed", "job_id", job.ID, "error", err)
	}
	outboxProcessed.WithLabelValues("retry").Inc()
	slog.Warn("notification delivery failed, will retry",
		"job_id", job.ID, "kind", job.Kind, "channel", job.Channel(),
		"attempt", row.Attempts, "next_attempt_at", next, "error", sendErr)
}

func (r *Relay) fail(ctx context.Context, job Job, cause error) {
	if err := r.repo.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		slog.Error("mark notification failed", "job_id", job.ID, "error", err)
	}
	outboxProcessed.WithLabelValues("failed").Inc()

	attrs := []any{"job_id", job.ID, "kind", job.Kind, "channel", job.Channel(), "action", "notification_failed", "error", cause}
	if job.ReportID != nil {
		attrs = append(attrs, "report_id", job.ReportID.String())
	}
	slog.Error("notification delivery gave up", attrs...)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("notification.kind", job.Kind)
		scope.SetTag("notification.channel", job.Channel())
		sentry.CaptureException(cause)
	})
}

// retryDelay doubles from BaseDelay per attempt, capped at MaxDelay.
func (r *Relay) retryDelay(attempts int) time.Duration {
	d := r.cfg.BaseDelay
	if d <= 0 {
		d = 30 * time.Second
	}
	for i := 1; i < attempts; i++ {
		d *= 2
		if r.cfg.MaxDelay > 0 && d >= r.cfg.MaxDelay {
			return r.cfg.MaxDelay
		}
	}
	return d
}

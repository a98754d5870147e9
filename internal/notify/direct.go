package notify

import (
	"context"
	"fmt"
)

// Sender delivers one job. Implementations: DirectSender (providers) and
// AMQPPublisher (hand-off to the notifier worker).
type Sender interface {
	Send(ctx context.Context, job Job) error
}

// DirectSender calls the email and SMS providers, each call wrapped in the
// retry policy. A nil provider fails the job with ErrNotConfigured.
type DirectSender struct {
	Email  EmailSender
	SMS    SMSSender
	Policy RetryPolicy
}

func NewDirectSender(email EmailSender, sms SMSSender) *DirectSender {
	return &DirectSender{Email: email, SMS: sms, Policy: DefaultRetryPolicy()}
}

func (d *DirectSender) Send(ctx context.Context, job Job) error {
	var err error
	switch {
	case job.Email != nil:
		if d.Email == nil {
			err = fmt.Errorf("email: %w", ErrNotConfigured)
			break
		}
		msg := *job.Email
		err = d.Policy.Do(ctx, func(ctx context.Context) error {
			return d.Email.SendEmail(ctx, msg)
		})
	case len(job.SMS) > 0:
		if d.SMS == nil {
			err = fmt.Errorf("sms: %w", ErrNotConfigured)
			break
		}
		err = d.Policy.Do(ctx, func(ctx context.Context) error {
			return d.SMS.SendSMS(ctx, job.SMS)
		})
	default:
		return nil
	}
	recordDelivery(job.Channel(), err)
	return err
}

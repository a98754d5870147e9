package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/sony/gobreaker"
	"github.com/wneessen/go-mail"
)

var ErrNotConfigured = errors.New("notification channel not configured")

type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// SMTPMailer sends HTML email through a single SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
	cb     *gobreaker.CircuitBreaker
}

// NewSMTPMailer returns ErrNotConfigured when SMTP host or sender address is missing.
func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" || cfg.EmailFrom == "" {
		return nil, ErrNotConfigured
	}

	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.SMTPSecure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{
		client: client,
		from:   cfg.EmailFrom,
		cb:     config.NewCircuitBreaker("SMTP", 30*time.Second, nil),
	}, nil
}

func (m *SMTPMailer) SendEmail(ctx context.Context, msg EmailMessage) error {
	message := mail.NewMsg()
	if err := message.From(m.from); err != nil {
		return permanent(fmt.Errorf("invalid from address: %w", err))
	}
	if err := message.To(msg.To); err != nil {
		return permanent(fmt.Errorf("invalid recipient %q: %w", msg.To, err))
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextHTML, msg.HTML)

	_, err := m.cb.Execute(func() (interface{}, error) {
		return nil, m.client.DialAndSendWithContext(ctx, message)
	})
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

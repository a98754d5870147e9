package notify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
)

const (
	TransportDirect = "direct"
	TransportAMQP   = "amqp"
)

// DirectFromConfig builds the provider stack. A channel whose provider is not
// configured stays nil, so its jobs fail with ErrNotConfigured.
func DirectFromConfig(cfg *config.Config) *DirectSender {
	var email EmailSender
	if m, err := NewSMTPMailer(cfg); err == nil {
		email = m
	} else if !errors.Is(err, ErrNotConfigured) {
		slog.Error("smtp mailer disabled", "error", err.Error())
	} else {
		slog.Warn("email notifications disabled: SMTP not configured")
	}

	var sms SMSSender
	if c, err := NewOneCodeSoftClient(cfg); err == nil {
		sms = c
	} else {
		slog.Warn("sms notifications disabled: SMS API not configured")
	}

	d := NewDirectSender(email, sms)
	d.Policy.Timeout = cfg.NotifySendTimeout
	return d
}

// RelayConfigFrom applies NOTIFY_MAX_ATTEMPTS and enables LISTEN/NOTIFY on dsn.
func RelayConfigFrom(cfg *config.Config, dsn string) RelayConfig {
	rc := DefaultRelayConfig()
	if cfg.NotifyMaxAttempts > 0 {
		rc.MaxAttempts = cfg.NotifyMaxAttempts
	}
	rc.ListenDSN = dsn
	return rc
}

// TransportFromConfig picks where the relay hands jobs: straight to the
// providers, or onto the AMQP queue for cmd/notifier. close is never nil.
func TransportFromConfig(cfg *config.Config) (Sender, func() error, error) {
	switch cfg.NotifyTransport {
	case "", TransportDirect:
		return DirectFromConfig(cfg), func() error { return nil }, nil
	case TransportAMQP:
		if cfg.AMQPURL == "" {
			return nil, nil, errors.New("NOTIFY_TRANSPORT=amqp requires AMQP_URL")
		}
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.NotifyQueue)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
}

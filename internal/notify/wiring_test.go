package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
)

func TestDirectFromConfigWithoutProviders(t *testing.T) {
	d := DirectFromConfig(&config.Config{NotifySendTimeout: 5 * time.Second})
	if d.Email != nil || d.SMS != nil {
		t.Fatalf("expected no providers, got email=%v sms=%v", d.Email, d.SMS)
	}
	if d.Policy.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", d.Policy.Timeout)
	}
	msg := EmailMessage{To: "a@example.edu", Subject: "s", HTML: "<p>x</p>"}
	if err := d.Send(context.Background(), Job{Kind: KindReporterStatus, Email: &msg}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestTransportFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		amqpURL   string
		wantErr   bool
	}{
		{"default is direct", "", "", false},
		{"direct", TransportDirect, "", false},
		{"amqp needs url", TransportAMQP, "", true},
		{"unknown", "carrier-pigeon", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, closeFn, err := TransportFromConfig(&config.Config{NotifyTransport: tt.transport, AMQPURL: tt.amqpURL})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if _, ok := sender.(*DirectSender); !ok {
					t.Errorf("sender = %T, want *DirectSender", sender)
				}
				if closeFn() != nil {
					t.Error("close returned error")
				}
			}
		})
	}
}

func TestRelayConfigFrom(t *testing.T) {
	rc := RelayConfigFrom(&config.Config{NotifyMaxAttempts: 7}, "dsn")
	if rc.MaxAttempts != 7 || rc.ListenDSN != "dsn" {
		t.Errorf("relay config = %+v", rc)
	}
	if rc := RelayConfigFrom(&config.Config{}, ""); rc.MaxAttempts != DefaultRelayConfig().MaxAttempts {
		t.Errorf("default attempts = %d", rc.MaxAttempts)
	}
}

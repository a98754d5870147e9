package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
)

func TestNormalizeNumber(t *testing.T) {
	tests := map[string]string{
		"01711-000000":    "8801711000000",
		"+8801711000000":  "8801711000000",
		"8801711000000":   "8801711000000",
		"(017) 11 000000": "8801711000000",
	}
	for in, want := range tests {
		if got := NormalizeNumber(in); got != want {
			t.Errorf("NormalizeNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOneCodeSoftClientSendsBulkPayload(t *testing.T) {
	var got bulkSMSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client, err := NewOneCodeSoftClient(&config.Config{SMSAPIKey: "key", SMSSenderID: "SUROKHA", SMSAPIURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOneCodeSoftClient: %v", err)
	}
	err = client.SendSMS(context.Background(), []SMSMessage{
		{Number: "01711-000000", Text: "hello"},
		{Number: "8801811000000", Text: "hello"},
	})
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if got.APIKey != "key" || got.SenderID != "SUROKHA" || len(got.MessageParameters) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.MessageParameters[0].Number != "8801711000000" {
		t.Errorf("number not normalised: %q", got.MessageParameters[0].Number)
	}
}

func TestOneCodeSoftClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := NewOneCodeSoftClient(&config.Config{SMSAPIKey: "key", SMSSenderID: "id", SMSAPIURL: srv.URL})
	sender := &DirectSender{SMS: client, Policy: RetryPolicy{InitialInterval: time.Millisecond, MaxRetries: 3, Timeout: time.Second}}

	if err := sender.Send(context.Background(), Job{Kind: KindProctorSMS, SMS: []SMSMessage{{Number: "1", Text: "x"}}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestOneCodeSoftClientDoesNotRetryRejections(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, _ := NewOneCodeSoftClient(&config.Config{SMSAPIKey: "bad", SMSSenderID: "id", SMSAPIURL: srv.URL})
	sender := &DirectSender{SMS: client, Policy: RetryPolicy{InitialInterval: time.Millisecond, MaxRetries: 3, Timeout: time.Second}}

	if err := sender.Send(context.Background(), Job{Kind: KindProctorSMS, SMS: []SMSMessage{{Number: "1", Text: "x"}}}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestOneCodeSoftClientRejectionsKeepBreakerClosed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 4 {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client, _ := NewOneCodeSoftClient(&config.Config{SMSAPIKey: "k", SMSSenderID: "id", SMSAPIURL: srv.URL})
	msgs := []SMSMessage{{Number: "01711000000", Text: "x"}}
	for i := 0; i < 4; i++ {
		if err := client.SendSMS(context.Background(), msgs); err == nil {
			t.Fatalf("send %d: expected rejection", i)
		}
	}
	if err := client.SendSMS(context.Background(), msgs); err != nil {
		t.Fatalf("send after rejections: %v", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
}

func TestNewOneCodeSoftClientRequiresCredentials(t *testing.T) {
	if _, err := NewOneCodeSoftClient(&config.Config{}); err != ErrNotConfigured {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

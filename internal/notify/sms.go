package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/sony/gobreaker"
)

type SMSSender interface {
	SendSMS(ctx context.Context, msgs []SMSMessage) error
}

// OneCodeSoftClient calls the OneCodeSoft bulk SMS API.
type OneCodeSoftClient struct {
	url      string
	apiKey   string
	senderID string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
}

type bulkSMSRequest struct {
	APIKey            string         `json:"api_key"`
	SenderID          string         `json:"senderid"`
	MessageParameters []bulkSMSEntry `json:"MessageParameters"`
}

type bulkSMSEntry struct {
	Number string `json:"Number"`
	Text   string `json:"Text"`
}

func NewOneCodeSoftClient(cfg *config.Config) (*OneCodeSoftClient, error) {
	if cfg.SMSAPIKey == "" || cfg.SMSSenderID == "" {
		return nil, ErrNotConfigured
	}
	return &OneCodeSoftClient{
		url:      cfg.SMSAPIURL,
		apiKey:   cfg.SMSAPIKey,
		senderID: cfg.SMSSenderID,
		http:     &http.Client{Timeout: 20 * time.Second},
		cb:       config.NewCircuitBreaker("SMS", 30*time.Second, isPermanent),
	}, nil
}

// NormalizeNumber strips non-digits and prefixes the 88 country code when absent.
func NormalizeNumber(num string) string {
	var b strings.Builder
	for _, r := range num {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "88") {
		return digits
	}
	return "88" + digits
}

func (c *OneCodeSoftClient) SendSMS(ctx context.Context, msgs []SMSMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	req := bulkSMSRequest{APIKey: c.apiKey, SenderID: c.senderID}
	for _, m := range msgs {
		req.MessageParameters = append(req.MessageParameters, bulkSMSEntry{
			Number: NormalizeNumber(m.Number),
			Text:   m.Text,
		})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return permanent(err)
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, body)
	})
	return err
}

func (c *OneCodeSoftClient) post(ctx context.Context, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("bulk sms request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("bulk sms failed: %d %s", resp.StatusCode, respBody)
	case resp.StatusCode >= 400:
		return permanent(fmt.Errorf("bulk sms rejected: %d %s", resp.StatusCode, respBody))
	}
	return nil
}

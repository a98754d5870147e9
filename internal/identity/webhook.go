package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	svix "github.com/svix/svix-webhooks/go"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
)

var ErrMissingUserID = errors.New("missing data.id")

// WebhookVerifier checks svix-id / svix-timestamp / svix-signature headers.
type WebhookVerifier struct {
	wh *svix.Webhook
}

func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook secret: %w", err)
	}
	return &WebhookVerifier{wh: wh}, nil
}

func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) error {
	return v.wh.Verify(payload, headers)
}

type Event struct {
	Type string    `json:"type"`
	Data EventUser `json:"data"`
}

type EventUser struct {
	ID             string                 `json:"id"`
	PublicMetadata map[string]interface{} `json:"public_metadata"`
}

// Role returns the role carried in public metadata, defaulting to student
// when it is absent or not a known role.
func (u EventUser) Role() string {
	return RoleFromMetadata(u.PublicMetadata)
}

func RoleFromMetadata(meta map[string]interface{}) string {
	if r, ok := meta["role"].(string); ok && models.ValidRole(r) {
		return r
	}
	return models.RoleStudent
}

func ParseEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("decode webhook event: %w", err)
	}
	return e, nil
}

// MirrorsUser reports whether the event should update the local user table.
func (e Event) MirrorsUser() bool {
	return e.Type == EventUserCreated || e.Type == EventUserUpdated
}

// Package identity talks to the hosted identity provider (Clerk): account
// creation for invites, signed webhook verification and event decoding.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/sony/gobreaker"
)

var (
	ErrNotConfigured = errors.New("CLERK_SECRET_KEY not configured")
	// ErrIdentityConflict is returned when the provider rejects the account,
	// typically because the email address is already registered.
	ErrIdentityConflict = errors.New("identity provider rejected the account")
	// ErrRejected wraps any other 4xx answer: the request was wrong, the
	// provider is healthy.
	ErrRejected = errors.New("identity provider rejected the request")
)

// isRejection reports errors caused by the request rather than the provider.
func isRejection(err error) bool {
	return errors.Is(err, ErrIdentityConflict) || errors.Is(err, ErrRejected)
}

type NewUser struct {
	Email     string
	Password  string
	FirstName string
	Role      string
}

type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ClerkAPIURL, "/"),
		secret:  cfg.ClerkSecretKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		cb:      config.NewCircuitBreaker("Clerk-API", 30*time.Second, isRejection),
	}
}

type createUserRequest struct {
	EmailAddress   []string          `json:"email_address"`
	Password       string            `json:"password"`
	FirstName      string            `json:"first_name"`
	PublicMetadata map[string]string `json:"public_metadata"`
}

type apiErrors struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
		Meta        struct {
			ParamName string `json:"param_name"`
		} `json:"meta"`
	} `json:"errors"`
}

// CreateUser creates a password account carrying role in its public metadata
// and returns the provider's user id.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (string, error) {
	if c.secret == "" {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(createUserRequest{
		EmailAddress:   []string{u.Email},
		Password:       u.Password,
		FirstName:      u.FirstName,
		PublicMetadata: map[string]string{"role": u.Role},
	})
	if err != nil {
		return "", err
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.post(ctx, "/users", body)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", fmt.Errorf("%w: %s", ErrIdentityConflict, describe(raw))
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, describe(raw))
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("identity provider: %d %s", resp.StatusCode, describe(raw))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.ID == "" {
		return "", fmt.Errorf("identity provider: unexpected response %q", raw)
	}
	return created.ID, nil
}

// describe flattens the provider's error list into one line.
func describe(raw []byte) string {
	var e apiErrors
	if json.Unmarshal(raw, &e) != nil || len(e.Errors) == 0 {
		return strings.TrimSpace(string(raw))
	}
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msg := item.LongMessage
		if msg == "" {
			msg = item.Message
		}
		if item.Code == "form_param_unknown" && item.Meta.ParamName == "email_address" {
			msg += " (enable email addresses as an identifier in the identity provider)"
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

// Package notify delivers email and SMS notifications. Jobs are recorded in an
// outbox after the primary write commits and delivered at least once by a
// relay, either directly or through a RabbitMQ queue.
package notify

import (
	"github.com/google/uuid"
)

const (
	KindProctorSMS     = "proctor_sms_bulk"
	KindProctorEmail   = "proctor_email"
	KindReporterStatus = "reporter_status_email"
	KindCredentials    = "correspondent_credentials_email"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type SMSMessage struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// Job is one delivery: a single email or one bulk SMS request.
type Job struct {
	ID       uuid.UUID     `json:"id,omitempty"`
	Kind     string        `json:"kind"`
	ReportID *uuid.UUID    `json:"report_id,omitempty"`
	Email    *EmailMessage `json:"email,omitempty"`
	SMS      []SMSMessage  `json:"sms,omitempty"`
}

func (j Job) Channel() string {
	if j.Email != nil {
		return ChannelEmail
	}
	return ChannelSMS
}

// Recipient is anyone who can be reached by email, SMS or both.
type Recipient struct {
	Email  string
	Mobile string
}

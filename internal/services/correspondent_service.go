package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
)

// Invite steps that can fail after the identity account exists.
const (
	StepMirrorUser   = "mirror_user"
	StepCreateRecord = "create_correspondent"
	StepSendEmail    = "send_credentials"
)

// PartialInviteError means the identity account was created but a later
// step failed. The account is not rolled back; an admin has to finish or
// disable it by hand.
type PartialInviteError struct {
	Step       string
	ExternalID string
	Err        error
}

func (e *PartialInviteError) Error() string {
	return fmt.Sprintf("invite incomplete at %s (identity account %s exists): %v", e.Step, e.ExternalID, e.Err)
}

func (e *PartialInviteError) Unwrap() error { return e.Err }

type CorrespondentService struct {
	correspondents repository.CorrespondentRepository
	users          *UserService
	idp            IdentityProvider
	mailer         notify.Sender
	signInURL      string

	newPassword func() (string, error)
}

// NewCorrespondentService takes a synchronous sender for credentials: the
// plaintext password must never be written to the outbox.
func NewCorrespondentService(stores Stores, users *UserService, idp IdentityProvider, mailer notify.Sender, signInURL string) *CorrespondentService {
	return &CorrespondentService{
		correspondents: stores.Correspondents,
		users:          users,
		idp:            idp,
		mailer:         mailer,
		signInURL:      signInURL,
		newPassword:    identity.GeneratePassword,
	}
}

// Invite creates the identity account first. If that fails nothing local is
// written. Later failures return a *PartialInviteError.
func (s *CorrespondentService) Invite(ctx context.Context, req dto.InviteCorrespondentRequest) (*models.Correspondent, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	mobile := strings.TrimSpace(req.Mobile)
	if name == "" || email == "" {
		return nil, invalid("name and email are required")
	}
	if !validEmail(email) {
		return nil, invalid("email is not a valid address")
	}

	password, err := s.newPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	externalID, err := s.idp.CreateUser(ctx, identity.NewUser{
		Email:     email,
		Password:  password,
		FirstName: name,
		Role:      models.RoleCorrespondent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create identity account: %w", err)
	}

	partial := func(step string, err error) error {
		slog.Error("correspondent invite incomplete",
			"action", "invite_partial_failure",
			"step", step,
			"external_id", externalID,
			"error", err.Error(),
		)
		return &PartialInviteError{Step: step, ExternalID: externalID, Err: err}
	}

	user, err := s.users.SyncFromIdentity(ctx, externalID, models.RoleCorrespondent)
	if err != nil {
		return nil, partial(StepMirrorUser, err)
	}
	c := &models.Correspondent{ID: uuid.New(), UserID: user.ID, Name: name, Email: email, Mobile: mobile}
	if err := s.correspondents.Create(ctx, c); err != nil {
		return nil, partial(StepCreateRecord, err)
	}

	msg, err := notify.CredentialsEmail(email, name, password, s.signInURL)
	if err == nil {
		err = s.mailer.Send(ctx, notify.Job{Kind: notify.KindCredentials, Email: &msg})
	}
	if err != nil {
		return c, partial(StepSendEmail, err)
	}

	slog.Info("correspondent invited", "action", "correspondent_invited", "user_id", user.ID.String())
	return c, nil
}

func (s *CorrespondentService) List(ctx context.Context) ([]models.Correspondent, error) {
	out, err := s.correspondents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list correspondents: %w", err)
	}
	if out == nil {
		out = []models.Correspondent{}
	}
	return out, nil
}

func (s *CorrespondentService) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Correspondent, error) {
	c, err := s.correspondents.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrCorrespondentNotFound)
	}
	return c, nil
}

func (s *CorrespondentService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateCorrespondentRequest) (*models.Correspondent, error) {
	fields := repository.Fields{}
	trimmedPatch(fields, "name", req.Name)
	trimmedPatch(fields, "email", req.Email)
	trimmedPatch(fields, "mobile", req.Mobile)
	if v, ok := fields["name"]; ok && v.(string) == "" {
		return nil, invalid("name cannot be blank")
	}
	if v, ok := fields["email"]; ok && !validEmail(v.(string)) {
		return nil, invalid("email is not a valid address")
	}
	if err := s.correspondents.Update(ctx, id, fields); err != nil {
		return nil, notFound(err, ErrCorrespondentNotFound)
	}
	c, err := s.correspondents.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCorrespondentNotFound)
	}
	return c, nil
}

// IsPartialInvite reports whether err left an orphan identity account.
func IsPartialInvite(err error) bool {
	var p *PartialInviteError
	return errors.As(err, &p)
}

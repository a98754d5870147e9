// Package services holds the business rules. Handlers call services; services
// call repositories, the notification outbox and the live broker.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
)

var (
	// ErrValidation wraps every input error; the message after the prefix is
	// safe to show to the caller.
	ErrValidation = errors.New("validation failed")

	ErrReportNotFound        = errors.New("report not found")
	ErrStudentNotFound       = errors.New("student not found")
	ErrStudentNotVerified    = errors.New("student profile is not complete and verified")
	ErrProfileExists         = errors.New("profile already completed")
	ErrUserNotFound          = errors.New("user not found")
	ErrDepartmentNotFound    = errors.New("department not found")
	ErrDuplicateDepartment   = errors.New("department code already exists")
	ErrProctorNotFound       = errors.New("proctor not found")
	ErrCorrespondentNotFound = errors.New("correspondent not found")
)

// Notifier records notification jobs for asynchronous delivery.
type Notifier interface {
	Enqueue(ctx context.Context, jobs ...notify.Job) error
}

// Publisher pushes live updates to subscribers of a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// IdentityProvider creates sign-in accounts at the hosted identity service.
type IdentityProvider interface {
	CreateUser(ctx context.Context, u identity.NewUser) (string, error)
}

// Stores is the set of repositories the services depend on.
type Stores struct {
	Users          repository.UserRepository
	Departments    repository.DepartmentRepository
	Students       repository.StudentRepository
	Correspondents repository.CorrespondentRepository
	Proctors       repository.ProctorRepository
	Reports        repository.ReportRepository
	Locations      repository.LocationRepository
}

func StoresFrom(r *repository.Repositories) Stores {
	return Stores{
		Users:          r.Users,
		Departments:    r.Departments,
		Students:       r.Students,
		Correspondents: r.Correspondents,
		Proctors:       r.Proctors,
		Reports:        r.Reports,
		Locations:      r.Locations,
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ValidationMessage strips the ErrValidation prefix for API responses.
func ValidationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}

func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}

// detached keeps follow-up work alive after the request that triggered it
// has returned.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func trimmedPatch(fields repository.Fields, key string, val *string) {
	if val != nil {
		fields[key] = strings.TrimSpace(*val)
	}
}

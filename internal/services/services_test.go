package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository/repotest"
)

type fakeNotifier struct {
	mu   sync.Mutex
	Jobs []notify.Job
	Err  error
}

func (f *fakeNotifier) Enqueue(_ context.Context, jobs ...notify.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Jobs = append(f.Jobs, jobs...)
	return nil
}

type fakeIdentity struct {
	Calls []identity.NewUser
	ID    string
	Err   error
}

func (f *fakeIdentity) CreateUser(_ context.Context, u identity.NewUser) (string, error) {
	f.Calls = append(f.Calls, u)
	if f.Err != nil {
		return "", f.Err
	}
	return f.ID, nil
}

type fakeMailer struct {
	Jobs []notify.Job
	Err  error
}

func (f *fakeMailer) Send(_ context.Context, job notify.Job) error {
	f.Jobs = append(f.Jobs, job)
	return f.Err
}

type env struct {
	store    *repotest.Store
	stores   Stores
	notifier *fakeNotifier
	broker   *live.MemoryBroker
	reports  *ReportService
	dept     models.Department
	student  models.Student
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repotest.NewStore()
	stores := Stores{
		Users:          store.Users(),
		Departments:    store.Departments(),
		Students:       store.Students(),
		Correspondents: store.Correspondents(),
		Proctors:       store.Proctors(),
		Reports:        store.Reports(),
		Locations:      store.Locations(),
	}
	broker := live.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })

	dept := store.SeedDepartment(models.Department{Name: "Computer Science", Code: "CSE"})
	user := store.SeedUser(models.User{ExternalID: "user_student", Role: models.RoleStudent})
	student := store.SeedStudent(models.Student{
		UserID:             user.ID,
		Name:               "Rahim Uddin",
		Email:              "rahim@student.example.edu",
		Mobile:             "01711000000",
		RegistrationNumber: "2019331001",
		DepartmentID:       dept.ID,
		IsProfileComplete:  true,
		IsVerified:         true,
	})

	notifier := &fakeNotifier{}
	return &env{
		store:    store,
		stores:   stores,
		notifier: notifier,
		broker:   broker,
		reports: NewReportService(stores, notifier, broker, func(token string) string {
			return "https://surokha.example.edu/report/" + token
		}),
		dept:    dept,
		student: student,
	}
}

func (e *env) seedReport(t *testing.T, created time.Time) models.Report {
	t.Helper()
	return e.store.SeedReport(models.Report{
		ReporterID:  e.student.ID,
		Type:        models.ReportTypeSafety,
		Description: "followed home",
		Status:      models.ReportStatusPending,
		PublicToken: "tok-" + created.Format("150405.000000000"),
		CreatedAt:   created,
	})
}

func receive(t *testing.T, sub *live.Subscription) []byte {
	t.Helper()
	select {
	case msg, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live update")
	}
	return nil
}

func isValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

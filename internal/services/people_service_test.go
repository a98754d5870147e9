package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/google/uuid"
)

func TestLocationAppendPublishes(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())
	svc := NewLocationService(e.stores, e.broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := e.broker.Subscribe(ctx, live.LocationTopic(report.ID))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	loc, err := svc.Append(context.Background(), report.ID, 23.81, 90.41)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if loc.Timestamp.IsZero() || loc.ReportID != report.ID {
		t.Errorf("loc = %+v", loc)
	}

	var got models.ReportLocation
	if err := json.Unmarshal(receive(t, sub), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Latitude != 23.81 || got.Longitude != 90.41 {
		t.Errorf("published %+v", got)
	}
}

func TestLocationAppendRejects(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())
	svc := NewLocationService(e.stores, e.broker)

	if _, err := svc.Append(context.Background(), report.ID, 100, 0); !isValidation(err) {
		t.Errorf("bad latitude: err = %v", err)
	}
	if _, err := svc.Append(context.Background(), uuid.New(), 1, 1); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("unknown report: err = %v", err)
	}
	if n := e.store.LocationCount(report.ID); n != 0 {
		t.Errorf("rejected points were stored: %d", n)
	}
}

func TestLocationLatestAndHistory(t *testing.T) {
	e := newEnv(t)
	report := e.seedReport(t, time.Now())
	svc := NewLocationService(e.stores, e.broker)

	latest, err := svc.Latest(context.Background(), report.ID)
	if err != nil || latest != nil {
		t.Fatalf("empty log: latest = %v, err = %v", latest, err)
	}

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	for i := 0; i < 3; i++ {
		if _, err := svc.Append(context.Background(), report.ID, float64(i), 0); err != nil {
			t.Fatalf("Append: %v", err)
		}
		clock = clock.Add(10 * time.Second)
	}

	latest, err = svc.Latest(context.Background(), report.ID)
	if err != nil || latest == nil || latest.Latitude != 2 {
		t.Fatalf("latest = %+v, err = %v", latest, err)
	}
	// A point stamped before the newest one does not become latest.
	svc.now = func() time.Time { return clock.Add(-time.Hour) }
	if _, err := svc.Append(context.Background(), report.ID, 9, 9); err != nil {
		t.Fatalf("Append: %v", err)
	}
	latest, err = svc.Latest(context.Background(), report.ID)
	if err != nil || latest == nil || latest.Latitude != 2 {
		t.Fatalf("latest after older point = %+v, err = %v", latest, err)
	}

	hist, err := svc.History(context.Background(), report.ID, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 || hist[0].Latitude != 2 || hist[1].Latitude != 1 {
		t.Errorf("history = %+v", hist)
	}
}

func TestSyncFromIdentity(t *testing.T) {
	e := newEnv(t)
	users := NewUserService(e.stores)
	before := e.store.CountUsers()

	u, err := users.SyncFromIdentity(context.Background(), "user_new", models.RoleStudent)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.IsVerified {
		t.Error("mirrored users start unverified")
	}
	again, err := users.SyncFromIdentity(context.Background(), "user_new", models.RoleCorrespondent)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if again.ID != u.ID || again.Role != models.RoleCorrespondent {
		t.Errorf("again = %+v", again)
	}
	if e.store.CountUsers() != before+1 {
		t.Errorf("users = %d, want %d", e.store.CountUsers(), before+1)
	}
	if _, err := users.SyncFromIdentity(context.Background(), "user_x", "superuser"); !isValidation(err) {
		t.Errorf("bad role: err = %v", err)
	}
}

func TestEnsureAccountKeepsExistingRole(t *testing.T) {
	e := newEnv(t)
	users := NewUserService(e.stores)
	e.store.SeedUser(models.User{ExternalID: "user_admin", Role: models.RoleAdmin})

	u, err := users.EnsureAccount(context.Background(), "user_admin", models.RoleStudent)
	if err != nil || u.Role != models.RoleAdmin {
		t.Fatalf("u = %+v, err = %v", u, err)
	}
	fresh, err := users.EnsureAccount(context.Background(), "user_fresh", "")
	if err != nil || fresh.Role != models.RoleStudent {
		t.Fatalf("fresh = %+v, err = %v", fresh, err)
	}
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	users := NewUserService(e.stores)
	u, err := users.GetByExternalID(context.Background(), "user_student")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	me, err := users.Me(context.Background(), u)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Student == nil || !me.CanReport {
		t.Errorf("me = %+v", me)
	}
}

func profileRequest(deptID uuid.UUID) dto.CompleteProfileRequest {
	return dto.CompleteProfileRequest{
		Name:               "Karim",
		Email:              "karim@student.example.edu",
		Mobile:             "01911000000",
		RegistrationNumber: "2020331042",
		DepartmentID:       deptID,
		PresentAddress:     "Hall 2, Room 210",
		SelfiePhotoPath:    "photos/selfie.jpg",
		IDCardPhotoPath:    "photos/id.jpg",
	}
}

func TestCompleteProfile(t *testing.T) {
	e := newEnv(t)
	students := NewStudentService(e.stores)
	userID := uuid.New()

	st, err := students.CompleteProfile(context.Background(), userID, profileRequest(e.dept.ID))
	if err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}
	if !st.IsProfileComplete || st.IsVerified || st.CanReport() {
		t.Errorf("new profile flags = complete:%v verified:%v", st.IsProfileComplete, st.IsVerified)
	}
	if st.DepartmentName() != "Computer Science" {
		t.Errorf("department = %q", st.DepartmentName())
	}
	if _, err := students.CompleteProfile(context.Background(), userID, profileRequest(e.dept.ID)); !errors.Is(err, ErrProfileExists) {
		t.Errorf("second submit: err = %v", err)
	}

	pending, err := students.ListPendingVerification(context.Background())
	if err != nil || len(pending) != 1 || pending[0].ID != st.ID {
		t.Fatalf("pending = %+v, err = %v", pending, err)
	}
	verified, err := students.Verify(context.Background(), st.ID, true)
	if err != nil || !verified.CanReport() {
		t.Fatalf("verified = %+v, err = %v", verified, err)
	}
	pending, _ = students.ListPendingVerification(context.Background())
	if len(pending) != 0 {
		t.Errorf("pending after verify = %d", len(pending))
	}
}

func TestCompleteProfileValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CompleteProfileRequest)
	}{
		{"missing name", func(r *dto.CompleteProfileRequest) { r.Name = " " }},
		{"missing address", func(r *dto.CompleteProfileRequest) { r.PresentAddress = "" }},
		{"missing selfie", func(r *dto.CompleteProfileRequest) { r.SelfiePhotoPath = "" }},
		{"bad email", func(r *dto.CompleteProfileRequest) { r.Email = "not-an-email" }},
		{"photo not uploaded", func(r *dto.CompleteProfileRequest) { r.IDCardPhotoPath = "audio/x.webm" }},
		{"unknown department", func(r *dto.CompleteProfileRequest) { r.DepartmentID = uuid.New() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			req := profileRequest(e.dept.ID)
			tt.mutate(&req)
			if _, err := NewStudentService(e.stores).CompleteProfile(context.Background(), uuid.New(), req); !isValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestStudentUpdate(t *testing.T) {
	e := newEnv(t)
	students := NewStudentService(e.stores)

	st, err := students.Update(context.Background(), e.student.ID, dto.UpdateStudentRequest{Mobile: strPtr(" 01700000000 ")})
	if err != nil || st.Mobile != "01700000000" {
		t.Fatalf("st = %+v, err = %v", st, err)
	}
	if _, err := students.Update(context.Background(), e.student.ID, dto.UpdateStudentRequest{Name: strPtr("")}); !isValidation(err) {
		t.Errorf("blank name: err = %v", err)
	}
	if _, err := students.Update(context.Background(), uuid.New(), dto.UpdateStudentRequest{Name: strPtr("X")}); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("unknown: err = %v", err)
	}
}

func newCorrespondentService(e *env, idp *fakeIdentity, mailer *fakeMailer) *CorrespondentService {
	svc := NewCorrespondentService(e.stores, NewUserService(e.stores), idp, mailer, "https://surokha.example.edu/sign-in")
	svc.newPassword = func() (string, error) { return "Xy7pQ2mN8kLa", nil }
	return svc
}

func TestInviteCorrespondent(t *testing.T) {
	e := newEnv(t)
	idp := &fakeIdentity{ID: "user_corr"}
	mailer := &fakeMailer{}
	svc := newCorrespondentService(e, idp, mailer)

	c, err := svc.Invite(context.Background(), dto.InviteCorrespondentRequest{Name: "Nadia", Email: "nadia@example.edu", Mobile: "01611000000"})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if len(idp.Calls) != 1 || idp.Calls[0].Role != models.RoleCorrespondent || idp.Calls[0].Password != "Xy7pQ2mN8kLa" {
		t.Errorf("idp calls = %+v", idp.Calls)
	}
	u, err := NewUserService(e.stores).GetByExternalID(context.Background(), "user_corr")
	if err != nil || u.Role != models.RoleCorrespondent || c.UserID != u.ID {
		t.Fatalf("mirrored user = %+v, err = %v", u, err)
	}
	if len(mailer.Jobs) != 1 {
		t.Fatalf("mails = %d", len(mailer.Jobs))
	}
	job := mailer.Jobs[0]
	if job.Kind != notify.KindCredentials || job.Email.To != "nadia@example.edu" || !strings.Contains(job.Email.HTML, "Xy7pQ2mN8kLa") {
		t.Errorf("credentials mail = %+v", job)
	}
}

func TestInviteCorrespondentIdentityFailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	svc := newCorrespondentService(e, &fakeIdentity{Err: errors.New("email taken")}, &fakeMailer{})
	users := e.store.CountUsers()

	_, err := svc.Invite(context.Background(), dto.InviteCorrespondentRequest{Name: "Nadia", Email: "nadia@example.edu"})
	if err == nil || IsPartialInvite(err) {
		t.Fatalf("err = %v, want plain error", err)
	}
	if e.store.CountUsers() != users || e.store.CountCorrespondents() != 0 {
		t.Error("local rows written despite identity failure")
	}
}

func TestInviteCorrespondentPartialFailures(t *testing.T) {
	t.Run("mirror", func(t *testing.T) {
		e := newEnv(t)
		e.store.CreateUserError = errors.New("db down")
		_, err := newCorrespondentService(e, &fakeIdentity{ID: "user_c"}, &fakeMailer{}).
			Invite(context.Background(), dto.InviteCorrespondentRequest{Name: "N", Email: "n@example.edu"})
		var p *PartialInviteError
		if !errors.As(err, &p) || p.Step != StepMirrorUser || p.ExternalID != "user_c" {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("email", func(t *testing.T) {
		e := newEnv(t)
		c, err := newCorrespondentService(e, &fakeIdentity{ID: "user_c"}, &fakeMailer{Err: errors.New("smtp 421")}).
			Invite(context.Background(), dto.InviteCorrespondentRequest{Name: "N", Email: "n@example.edu"})
		var p *PartialInviteError
		if !errors.As(err, &p) || p.Step != StepSendEmail {
			t.Fatalf("err = %v", err)
		}
		if c == nil || e.store.CountCorrespondents() != 1 {
			t.Error("correspondent row should exist after an email failure")
		}
	})
}

func TestDirectory(t *testing.T) {
	e := newEnv(t)
	dir := NewDirectoryService(e.stores)

	d, err := dir.CreateDepartment(context.Background(), dto.CreateDepartmentRequest{Name: "Physics", Code: " phy "})
	if err != nil || d.Code != "PHY" {
		t.Fatalf("d = %+v, err = %v", d, err)
	}
	if _, err := dir.CreateDepartment(context.Background(), dto.CreateDepartmentRequest{Name: "Physics 2", Code: "PHY"}); !errors.Is(err, ErrDuplicateDepartment) {
		t.Errorf("duplicate: err = %v", err)
	}

	if _, err := dir.CreateProctor(context.Background(), dto.CreateProctorRequest{Name: "No Contact", DepartmentID: d.ID}); !isValidation(err) {
		t.Errorf("no contact: err = %v", err)
	}
	p, err := dir.CreateProctor(context.Background(), dto.CreateProctorRequest{Name: "Dr. Alam", Mobile: "01511000000", DepartmentID: d.ID})
	if err != nil || !p.IsActive {
		t.Fatalf("p = %+v, err = %v", p, err)
	}
	off := false
	if _, err := dir.UpdateProctor(context.Background(), p.ID, dto.UpdateProctorRequest{IsActive: &off}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ := dir.ListProctors(context.Background(), true)
	if len(active) != 0 {
		t.Errorf("active proctors = %d", len(active))
	}
	if err := dir.DeleteProctor(context.Background(), p.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := dir.DeleteProctor(context.Background(), p.ID); !errors.Is(err, ErrProctorNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

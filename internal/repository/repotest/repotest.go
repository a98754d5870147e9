// Package repotest provides in-memory implementations of the repository ports
// for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/google/uuid"
)

// Store is a single in-memory database backing every fake repository, so
// joins (student -> department, report -> reporter) behave like the real ones.
type Store struct {
	mu sync.Mutex

	users          map[uuid.UUID]*models.User
	departments    map[uuid.UUID]*models.Department
	students       map[uuid.UUID]*models.Student
	correspondents map[uuid.UUID]*models.Correspondent
	proctors       map[uuid.UUID]*models.Proctor
	reports        map[uuid.UUID]*models.Report
	locations      []models.ReportLocation
	jobs           map[uuid.UUID]*models.NotificationJob
	nextLocationID int64

	// Error injection
	CreateReportError error
	AppendError       error
	UpdateReportError error
	EnqueueError      error
	CreateUserError   error

	// Call tracking
	EnqueueCalls [][]models.NotificationJob
}

func NewStore() *Store {
	return &Store{
		users:          make(map[uuid.UUID]*models.User),
		departments:    make(map[uuid.UUID]*models.Department),
		students:       make(map[uuid.UUID]*models.Student),
		correspondents: make(map[uuid.UUID]*models.Correspondent),
		proctors:       make(map[uuid.UUID]*models.Proctor),
		reports:        make(map[uuid.UUID]*models.Report),
		jobs:           make(map[uuid.UUID]*models.NotificationJob),
	}
}

func (s *Store) Users() *Users                   { return &Users{s} }
func (s *Store) Departments() *Departments       { return &Departments{s} }
func (s *Store) Students() *Students             { return &Students{s} }
func (s *Store) Correspondents() *Correspondents { return &Correspondents{s} }
func (s *Store) Proctors() *Proctors             { return &Proctors{s} }
func (s *Store) Reports() *Reports               { return &Reports{s} }
func (s *Store) Locations() *Locations           { return &Locations{s} }
func (s *Store) Outbox() *Outbox                 { return &Outbox{s} }

// Seed helpers assign IDs when missing and return the stored copy.

func (s *Store) SeedUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = &u
	return u
}

func (s *Store) SeedDepartment(d models.Department) models.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.departments[d.ID] = &d
	return d
}

func (s *Store) SeedStudent(st models.Student) models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	st.Department = nil
	s.students[st.ID] = &st
	return st
}

func (s *Store) SeedProctor(p models.Proctor) models.Proctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Department = nil
	s.proctors[p.ID] = &p
	return p
}

func (s *Store) SeedReport(r models.Report) models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Reporter = nil
	s.reports[r.ID] = &r
	return r
}

// Jobs returns every outbox row, oldest first.
func (s *Store) Jobs() []models.NotificationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NotificationJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

// LocationCount returns how many rows were appended for a report.
func (s *Store) LocationCount(reportID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.locations {
		if l.ReportID == reportID {
			n++
		}
	}
	return n
}

func (s *Store) CountUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) CountCorrespondents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.correspondents)
}

func (s *Store) withDepartment(st models.Student) models.Student {
	if d, ok := s.departments[st.DepartmentID]; ok {
		dc := *d
		st.Department = &dc
	}
	return st
}

type Users struct{ s *Store }

var _ repository.UserRepository = (*Users)(nil)

func (r *Users) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *Users) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ExternalID == externalID {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CreateUserError != nil {
		return r.s.CreateUserError
	}
	for _, existing := range r.s.users {
		if existing.ExternalID == u.ExternalID {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r *Users) Update(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "role":
			u.Role = v.(string)
		case "is_verified":
			u.IsVerified = v.(bool)
		}
	}
	u.UpdatedAt = time.Now()
	return nil
}

type Departments struct{ s *Store }

var _ repository.DepartmentRepository = (*Departments)(nil)

func (r *Departments) List(_ context.Context) ([]models.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Department, 0, len(r.s.departments))
	for _, d := range r.s.departments {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (r *Departments) FindByID(_ context.Context, id uuid.UUID) (*models.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r *Departments) Create(_ context.Context, d *models.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.departments {
		if existing.Code == d.Code {
			return repository.ErrDuplicate
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	c := *d
	r.s.departments[d.ID] = &c
	return nil
}

func (r *Departments) Update(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departments[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			d.Name = v.(string)
		case "code":
			d.Code = v.(string)
		}
	}
	return nil
}

func (r *Departments) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.departments, id)
	return nil
}

type Students struct{ s *Store }

var _ repository.StudentRepository = (*Students)(nil)

func (r *Students) Create(_ context.Context, st *models.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.students {
		if existing.UserID == st.UserID {
			return repository.ErrDuplicate
		}
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	st.CreatedAt = time.Now()
	c := *st
	c.Department = nil
	r.s.students[st.ID] = &c
	return nil
}

func (r *Students) FindByID(_ context.Context, id uuid.UUID) (*models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := r.s.withDepartment(*st)
	return &c, nil
}

func (r *Students) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.students {
		if st.UserID == userID {
			c := r.s.withDepartment(*st)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Students) List(_ context.Context, filter repository.StudentFilter) ([]models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Student
	for _, st := range r.s.students {
		if filter.PendingVerification && !(st.IsProfileComplete && !st.IsVerified) {
			continue
		}
		out = append(out, r.s.withDepartment(*st))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (r *Students) Update(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			st.Name = v.(string)
		case "email":
			st.Email = v.(string)
		case "mobile":
			st.Mobile = v.(string)
		case "registration_number":
			st.RegistrationNumber = v.(string)
		case "department_id":
			st.DepartmentID = v.(uuid.UUID)
		case "present_address":
			st.PresentAddress = v.(string)
		case "is_verified":
			st.IsVerified = v.(bool)
		case "is_profile_complete":
			st.IsProfileComplete = v.(bool)
		}
	}
	st.UpdatedAt = time.Now()
	return nil
}

type Correspondents struct{ s *Store }

var _ repository.CorrespondentRepository = (*Correspondents)(nil)

func (r *Correspondents) Create(_ context.Context, c *models.Correspondent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.s.correspondents[c.ID] = &cp
	return nil
}

func (r *Correspondents) FindByID(_ context.Context, id uuid.UUID) (*models.Correspondent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.correspondents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *Correspondents) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Correspondent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.correspondents {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Correspondents) List(_ context.Context) ([]models.Correspondent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Correspondent, 0, len(r.s.correspondents))
	for _, c := range r.s.correspondents {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (r *Correspondents) Update(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.correspondents[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			c.Name = v.(string)
		case "email":
			c.Email = v.(string)
		case "mobile":
			c.Mobile = v.(string)
		}
	}
	return nil
}

type Proctors struct{ s *Store }

var _ repository.ProctorRepository = (*Proctors)(nil)

func (r *Proctors) List(_ context.Context, activeOnly bool) ([]models.Proctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Proctor
	for _, p := range r.s.proctors {
		if activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		if d, ok := r.s.departments[p.DepartmentID]; ok {
			dc := *d
			cp.Department = &dc
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (r *Proctors) FindByID(_ context.Context, id uuid.UUID) (*models.Proctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.proctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Proctors) Create(_ context.Context, p *models.Proctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.s.proctors[p.ID] = &cp
	return nil
}

func (r *Proctors) Update(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.proctors[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "email":
			p.Email = v.(string)
		case "mobile":
			p.Mobile = v.(string)
		case "department_id":
			p.DepartmentID = v.(uuid.UUID)
		case "is_active":
			p.IsActive = v.(bool)
		}
	}
	return nil
}

func (r *Proctors) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.proctors[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.proctors, id)
	return nil
}

type Reports struct{ s *Store }

var _ repository.ReportRepository = (*Reports)(nil)

func (r *Reports) CreateWithLocation(_ context.Context, rep *models.Report, loc *models.ReportLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CreateReportError != nil {
		return r.s.CreateReportError
	}
	for _, existing := range r.s.reports {
		if existing.PublicToken == rep.PublicToken {
			return repository.ErrDuplicate
		}
	}
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	cp := *rep
	cp.Reporter = nil
	r.s.reports[rep.ID] = &cp

	loc.ReportID = rep.ID
	r.s.nextLocationID++
	loc.ID = r.s.nextLocationID
	r.s.locations = append(r.s.locations, *loc)
	return nil
}

func (r *Reports) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rep
	return &cp, nil
}

func (r *Reports) FindByToken(_ context.Context, token string) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rep := range r.s.reports {
		if rep.PublicToken == token {
			cp := *rep
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Reports) List(_ context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Report
	for _, rep := range r.s.reports {
		if filter.ReporterID != nil && rep.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.Status != "" && rep.Status != filter.Status {
			continue
		}
		cp := *rep
		if filter.WithReporter {
			if st, ok := r.s.students[rep.ReporterID]; ok {
				withDept := r.s.withDepartment(*st)
				cp.Reporter = &withDept
			}
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (r *Reports) Update(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.UpdateReportError != nil {
		return r.s.UpdateReportError
	}
	rep, ok := r.s.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			rep.Status = v.(string)
		case "status_note":
			s := v.(string)
			rep.StatusNote = &s
		case "audio_path":
			s := v.(string)
			rep.AudioPath = &s
		case "photo_path":
			s := v.(string)
			rep.PhotoPath = &s
		}
	}
	rep.UpdatedAt = time.Now()
	return nil
}

type Locations struct{ s *Store }

var _ repository.LocationRepository = (*Locations)(nil)

func (r *Locations) Append(_ context.Context, loc *models.ReportLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AppendError != nil {
		return r.s.AppendError
	}
	r.s.nextLocationID++
	loc.ID = r.s.nextLocationID
	r.s.locations = append(r.s.locations, *loc)
	return nil
}

// newer orders by timestamp, then insertion id.
func newer(a, b models.ReportLocation) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

func (r *Locations) Latest(_ context.Context, reportID uuid.UUID) (*models.ReportLocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *models.ReportLocation
	for i := range r.s.locations {
		l := r.s.locations[i]
		if l.ReportID != reportID {
			continue
		}
		if best == nil || newer(l, *best) {
			cp := l
			best = &cp
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r *Locations) History(_ context.Context, reportID uuid.UUID, limit int) ([]models.ReportLocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ReportLocation
	for _, l := range r.s.locations {
		if l.ReportID == reportID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, k int) bool { return newer(out[i], out[k]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Locations) LatestForReports(ctx context.Context, reportIDs []uuid.UUID) (map[uuid.UUID]models.ReportLocation, error) {
	out := make(map[uuid.UUID]models.ReportLocation, len(reportIDs))
	for _, id := range reportIDs {
		l, err := r.Latest(ctx, id)
		if err == repository.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = *l
	}
	return out, nil
}

type Outbox struct{ s *Store }

var _ repository.OutboxRepository = (*Outbox)(nil)

func (r *Outbox) Enqueue(_ context.Context, jobs []models.NotificationJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.EnqueueCalls = append(r.s.EnqueueCalls, jobs)
	if r.s.EnqueueError != nil {
		return r.s.EnqueueError
	}
	now := time.Now()
	for i := range jobs {
		j := jobs[i]
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		if j.Status == "" {
			j.Status = models.NotificationPending
		}
		j.CreatedAt = now.Add(time.Duration(i))
		r.s.jobs[j.ID] = &j
	}
	return nil
}

func (r *Outbox) ClaimDue(_ context.Context, now time.Time, limit int, lease time.Duration) ([]models.NotificationJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var due []*models.NotificationJob
	for _, j := range r.s.jobs {
		if j.Status == models.NotificationPending && !j.NextAttemptAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].CreatedAt.Before(due[k].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]models.NotificationJob, 0, len(due))
	for _, j := range due {
		j.Attempts++
		j.NextAttemptAt = now.Add(lease)
		out = append(out, *j)
	}
	return out, nil
}

func (r *Outbox) FindByID(_ context.Context, id uuid.UUID) (*models.NotificationJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *Outbox) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(j *models.NotificationJob) {
		j.Status = models.NotificationSent
		j.SentAt = &at
		j.LastError = ""
	})
}

func (r *Outbox) MarkRetry(_ context.Context, id uuid.UUID, next time.Time, lastErr string) error {
	return r.update(id, func(j *models.NotificationJob) {
		j.NextAttemptAt = next
		j.LastError = lastErr
	})
}

func (r *Outbox) MarkFailed(_ context.Context, id uuid.UUID, lastErr string) error {
	return r.update(id, func(j *models.NotificationJob) {
		j.Status = models.NotificationFailed
		j.LastError = lastErr
	})
}

func (r *Outbox) update(id uuid.UUID, fn func(*models.NotificationJob)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(j)
	return nil
}

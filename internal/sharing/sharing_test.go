package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingPusher struct {
	mu    sync.Mutex
	fixes []Fix
	err   error
}

func (p *recordingPusher) Push(_ context.Context, fix Fix) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fixes = append(p.fixes, fix)
	return p.err
}

func (p *recordingPusher) pushed() []Fix {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fix(nil), p.fixes...)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestNoPushBeforeFirstFix(t *testing.T) {
	pusher := &recordingPusher{}
	s := New(make(chan Fix), pusher, WithInterval(5*time.Millisecond))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if n := len(pusher.pushed()); n != 0 {
		t.Errorf("pushed %d fixes with no position, want 0", n)
	}
}

func TestPushesMostRecentFix(t *testing.T) {
	source := make(chan Fix, 3)
	source <- Fix{Latitude: 23.70, Longitude: 90.40}
	source <- Fix{Latitude: 23.71, Longitude: 90.41}
	last := Fix{Latitude: 23.72, Longitude: 90.42, At: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	source <- last

	pusher := &recordingPusher{}
	s := New(source, pusher, WithInterval(10*time.Millisecond))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	eventually(t, func() bool {
		got := pusher.pushed()
		return len(got) > 0 && got[len(got)-1] == last
	})

	latest, ok := s.Latest()
	if !ok || latest != last {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
}

func TestWatchStampsMissingTime(t *testing.T) {
	source := make(chan Fix, 1)
	source <- Fix{Latitude: 1, Longitude: 2}
	s := New(source, &recordingPusher{}, WithInterval(time.Hour))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	eventually(t, func() bool {
		fix, ok := s.Latest()
		return ok && !fix.At.IsZero()
	})
}

func TestPushErrorsDoNotStopLoop(t *testing.T) {
	source := make(chan Fix, 1)
	source <- Fix{Latitude: 1, Longitude: 2}

	var mu sync.Mutex
	var errs []error
	pusher := &recordingPusher{err: errors.New("offline")}
	s := New(source, pusher, WithInterval(5*time.Millisecond), OnError(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) >= 3
	})
	if err := s.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestStopIsFinal(t *testing.T) {
	source := make(chan Fix, 1)
	source <- Fix{Latitude: 1, Longitude: 2}
	pusher := &recordingPusher{}
	s := New(source, pusher, WithInterval(5*time.Millisecond))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return len(pusher.pushed()) > 0 })

	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	n := len(pusher.pushed())
	time.Sleep(30 * time.Millisecond)
	if got := len(pusher.pushed()); got != n {
		t.Errorf("pushes after Stop: %d -> %d", n, got)
	}

	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("restart err = %v, want ErrAlreadyStarted", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	s := New(make(chan Fix), &recordingPusher{})
	if err := s.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := s.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestParentCancelEndsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(make(chan Fix), &recordingPusher{}, WithInterval(5*time.Millisecond))
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after parent cancel")
	}
}

func TestHTTPPusher(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody pushBody
	status := http.StatusCreated
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(status)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewHTTPPusher(srv.URL, "rep-1", "tok")
	if err := p.Push(context.Background(), Fix{Latitude: 23.7, Longitude: 90.4}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if gotPath != "/api/student/reports/rep-1/locations" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody.Latitude != 23.7 || gotBody.Longitude != 90.4 {
		t.Errorf("body = %+v", gotBody)
	}

	status = http.StatusForbidden
	if err := p.Push(context.Background(), Fix{Latitude: 1, Longitude: 2}); err == nil {
		t.Error("expected error on 403")
	}
}

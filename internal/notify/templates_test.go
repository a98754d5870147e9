package notify

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

const link = "https://surokha.example.edu/report/V1StGXR8_Z5jdHi6B-myT"

func TestNewReportSMSText(t *testing.T) {
	got := NewReportSMSText(Reporter{Name: "রহিম", Department: "CSE", RegistrationNumber: "2019331001"}, link)
	want := "নাম: রহিম\nবিভাগ: CSE\nরেজি নম্বর: 2019331001\nমোবাইল নম্বর: —\nলিংক: " + link
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestNewReportEmailEscapesInput(t *testing.T) {
	msg, err := NewReportEmail("proctor@example.edu", Reporter{Name: "<script>x</script>"}, link)
	if err != nil {
		t.Fatalf("NewReportEmail: %v", err)
	}
	if msg.Subject != "সুরক্ষা - নতুন রিপোর্ট" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("reporter name was not escaped")
	}
	if !strings.Contains(msg.HTML, `href="`+link+`"`) {
		t.Errorf("link missing: %s", msg.HTML)
	}
}

func TestNewReportJobs(t *testing.T) {
	reportID := uuid.New()
	proctors := []Recipient{
		{Email: "a@example.edu", Mobile: "01711-000000"},
		{Email: "b@example.edu"},
		{Mobile: "8801811000000"},
		{},
	}

	jobs, err := NewReportJobs(reportID, Reporter{Name: "রহিম"}, link, proctors)
	if err != nil {
		t.Fatalf("NewReportJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 1 sms + 2 email", len(jobs))
	}
	if jobs[0].Kind != KindProctorSMS || len(jobs[0].SMS) != 2 {
		t.Errorf("first job = %+v, want bulk sms to two numbers", jobs[0])
	}
	for _, j := range jobs[1:] {
		if j.Kind != KindProctorEmail || j.Email == nil {
			t.Errorf("unexpected job %+v", j)
		}
		if j.ReportID == nil || *j.ReportID != reportID {
			t.Error("email job missing report id")
		}
	}
}

func TestNewReportJobsNoProctors(t *testing.T) {
	jobs, err := NewReportJobs(uuid.New(), Reporter{}, link, nil)
	if err != nil || len(jobs) != 0 {
		t.Errorf("jobs = %v, err = %v", jobs, err)
	}
}

func TestStatusUpdateEmail(t *testing.T) {
	tests := []struct {
		name     string
		note     string
		wantNote bool
	}{
		{"with note", "  তদন্ত চলছে  ", true},
		{"blank note", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := StatusUpdateEmail("s@example.edu", "করিম", "safety", "resolved", tt.note, link)
			if err != nil {
				t.Fatalf("StatusUpdateEmail: %v", err)
			}
			if !strings.Contains(msg.HTML, "রিজলভড") || !strings.Contains(msg.HTML, "নিরাপত্তা") {
				t.Errorf("labels missing: %s", msg.HTML)
			}
			if got := strings.Contains(msg.HTML, "অ্যাডমিনের মন্তব্য:"); got != tt.wantNote {
				t.Errorf("note block present = %v, want %v", got, tt.wantNote)
			}
			if tt.wantNote && !strings.Contains(msg.HTML, "<br>তদন্ত চলছে<br>") {
				t.Errorf("note not trimmed: %s", msg.HTML)
			}
		})
	}
}

func TestCredentialsEmail(t *testing.T) {
	msg, err := CredentialsEmail("c@example.edu", "Nadia", "Abc123xyz789", "https://surokha.example.edu/sign-in")
	if err != nil {
		t.Fatalf("CredentialsEmail: %v", err)
	}
	if msg.To != "c@example.edu" || msg.Subject != "সুরক্ষা - করেসপন্ডেন্ট অ্যাকাউন্ট" {
		t.Errorf("unexpected header: %+v", msg)
	}
	if !strings.Contains(msg.HTML, "Abc123xyz789") {
		t.Error("password missing from email")
	}
}

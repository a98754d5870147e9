package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"
)

const (
	subjectNewReport    = "সুরক্ষা - নতুন রিপোর্ট"
	subjectStatusUpdate = "সুরক্ষা রিপোর্ট - স্ট্যাটাস আপডেট"
	subjectCredentials  = "সুরক্ষা - করেসপন্ডেন্ট অ্যাকাউন্ট"
)

var statusLabels = map[string]string{
	"pending":      "পেন্ডিং",
	"acknowledged": "একনলেজড",
	"resolved":     "রিজলভড",
}

var typeLabels = map[string]string{
	"ragging": "র‍্যাগিং",
	"safety":  "নিরাপত্তা",
}

var (
	newReportTmpl = template.Must(template.New("new_report").Parse(
		`<br><br>একটি নতুন রিপোর্ট হয়েছে।<br><br>নাম: {{.Name}}<br>বিভাগ: {{.Department}}<br>রেজি নম্বর: {{.RegistrationNumber}}<br>মোবাইল নম্বর: {{.Mobile}}<br>লিংক: <a href="{{.Link}}">{{.Link}}</a>`))

	statusTmpl = template.Must(template.New("status").Parse(
		`{{.Name}},<br><br>আপনার রিপোর্টের স্ট্যাটাস আপডেট করা হয়েছে।<br><br>টাইপ: {{.Type}}<br>নতুন স্ট্যাটাস: {{.Status}}<br>` +
			`{{if .Note}}<br>অ্যাডমিনের মন্তব্য:<br>{{.Note}}<br>{{end}}` +
			`<br>রিপোর্ট লিংক: <a href="{{.Link}}">{{.Link}}</a>`))

	credentialsTmpl = template.Must(template.New("credentials").Parse(
		`{{.Name}},<br><br>আপনার অ্যাকাউন্ট তৈরি হয়েছে।<br>ইমেইল: {{.Email}}<br>পাসওয়ার্ড: {{.Password}}<br><br>সাইন ইন: {{.SignInURL}}`))
)

// Reporter is the student summary embedded in new-report notifications.
// Missing values render as "—".
type Reporter struct {
	Name               string
	Department         string
	RegistrationNumber string
	Mobile             string
}

func (r Reporter) orDash() Reporter {
	dash := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "—"
		}
		return s
	}
	return Reporter{
		Name:               dash(r.Name),
		Department:         dash(r.Department),
		RegistrationNumber: dash(r.RegistrationNumber),
		Mobile:             dash(r.Mobile),
	}
}

// NewReportSMSText is the plain-text proctor alert.
func NewReportSMSText(r Reporter, link string) string {
	r = r.orDash()
	return fmt.Sprintf("নাম: %s\nবিভাগ: %s\nরেজি নম্বর: %s\nমোবাইল নম্বর: %s\nলিংক: %s",
		r.Name, r.Department, r.RegistrationNumber, r.Mobile, link)
}

func NewReportEmail(to string, r Reporter, link string) (EmailMessage, error) {
	r = r.orDash()
	html, err := render(newReportTmpl, struct {
		Reporter
		Link string
	}{r, link})
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{To: to, Subject: subjectNewReport, HTML: html}, nil
}

// NewReportJobs builds one bulk SMS job for every proctor with a mobile and one
// email job per proctor with an email address.
func NewReportJobs(reportID uuid.UUID, r Reporter, link string, proctors []Recipient) ([]Job, error) {
	var jobs []Job
	text := NewReportSMSText(r, link)

	var sms []SMSMessage
	for _, p := range proctors {
		if p.Mobile != "" {
			sms = append(sms, SMSMessage{Number: p.Mobile, Text: text})
		}
	}
	if len(sms) > 0 {
		jobs = append(jobs, Job{Kind: KindProctorSMS, ReportID: &reportID, SMS: sms})
	}

	for _, p := range proctors {
		if p.Email == "" {
			continue
		}
		msg, err := NewReportEmail(p.Email, r, link)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{Kind: KindProctorEmail, ReportID: &reportID, Email: &msg})
	}
	return jobs, nil
}

// StatusUpdateEmail notifies the reporter of a status change. An empty note
// omits the comment block.
func StatusUpdateEmail(to, name, reportType, status, note, link string) (EmailMessage, error) {
	html, err := render(statusTmpl, struct {
		Name, Type, Status, Note, Link string
	}{
		Name:   name,
		Type:   label(typeLabels, reportType),
		Status: label(statusLabels, status),
		Note:   strings.TrimSpace(note),
		Link:   link,
	})
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{To: to, Subject: subjectStatusUpdate, HTML: html}, nil
}

func CredentialsEmail(to, name, password, signInURL string) (EmailMessage, error) {
	html, err := render(credentialsTmpl, struct {
		Name, Email, Password, SignInURL string
	}{name, to, password, signInURL})
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{To: to, Subject: subjectCredentials, HTML: html}, nil
}

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

package logging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestEntryFromRecord(t *testing.T) {
	rec := slog.NewRecord(time.Now(), slog.LevelError, "sms send failed", 0)
	rec.AddAttrs(
		slog.String("report_id", "0b7c"),
		slog.String("channel", "sms"),
		slog.Any("error", errors.New("gateway timeout")),
		slog.Int("attempt", 3),
	)

	entry := entryFromRecord(rec, []slog.Attr{slog.String("request_id", "req-1")})

	if entry.Level != "ERROR" || entry.Message != "sms send failed" {
		t.Fatalf("unexpected level/message: %s %q", entry.Level, entry.Message)
	}
	if entry.ReportID == nil || *entry.ReportID != "0b7c" {
		t.Errorf("ReportID = %v", entry.ReportID)
	}
	if entry.Channel != "sms" {
		t.Errorf("Channel = %q", entry.Channel)
	}
	if entry.Error != "gateway timeout" {
		t.Errorf("Error = %q", entry.Error)
	}
	if entry.TraceID != "req-1" {
		t.Errorf("TraceID = %q, want preset attr applied", entry.TraceID)
	}

	var extra map[string]interface{}
	if err := json.Unmarshal(entry.Extra, &extra); err != nil {
		t.Fatalf("extra not JSON: %v", err)
	}
	if extra["attempt"] != float64(3) {
		t.Errorf("extra[attempt] = %v", extra["attempt"])
	}
}

func TestPGHandlerEnabled(t *testing.T) {
	h := &PGHandler{}
	if h.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("WARN should not reach the DB sink")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("ERROR should reach the DB sink")
	}
}

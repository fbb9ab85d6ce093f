package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTelemetry(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write telemetry file: %v", err)
	}
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	writeTelemetry(t, dir, "telemetry-2025-01.jsonl",
		`{"ts_utc": "2025-01-10T12:00:00Z", "event_type": "ui_run", "user": "alice", "success": true}`,
		`not json at all`,
		`{"ts_utc": "2025-01-11T12:00:00Z", "event_type": "ui_run", "user": "bob", "success": false, "error": "boom"}`,
	)
	writeTelemetry(t, dir, "telemetry-2025-02.jsonl",
		`{"ts_utc": "2025-02-01T12:00:00Z", "event_type": "ui_feedback", "user": "carol"}`,
	)
	writeTelemetry(t, dir, "unrelated.log", `{"ts_utc": "2025-03-01T00:00:00Z"}`)

	events, err := ReadDir(dir, "telemetry*.jsonl", 1000)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events (malformed line and non-matching file skipped), got %d", len(events))
	}

	// Newest first.
	if events[0].User != "carol" || events[2].User != "alice" {
		t.Errorf("events not sorted newest-first: %s .. %s", events[0].User, events[2].User)
	}
}

func TestReadDir_MaxLinesKeepsTail(t *testing.T) {
	dir := t.TempDir()
	writeTelemetry(t, dir, "telemetry.jsonl",
		`{"ts_utc": "2025-01-01T00:00:00Z", "event_type": "ui_run", "user": "oldest"}`,
		`{"ts_utc": "2025-01-02T00:00:00Z", "event_type": "ui_run", "user": "middle"}`,
		`{"ts_utc": "2025-01-03T00:00:00Z", "event_type": "ui_run", "user": "newest"}`,
	)

	events, err := ReadDir(dir, "telemetry*.jsonl", 2)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected tail of 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.User == "oldest" {
			t.Error("oldest line should have been dropped by the tail bound")
		}
	}
}

func TestReadDir_EmptyDir(t *testing.T) {
	events, err := ReadDir(t.TempDir(), "telemetry*.jsonl", 100)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestSplit(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	events := []*Event{
		{TSUTC: "2025-06-10T18:30:00Z", EventType: "ui_run", Success: true,
			Payload: map[string]any{
				"release_type": "standard",
				"timings_ms":   map[string]any{"render_ms": 1234.0, "export_ms": 500.0},
			}},
		{TSUTC: "2025-06-10T19:00:00Z", EventType: "ui_run", Success: false, Error: "export failed"},
		{TSUTC: "2025-06-10T20:00:00Z", EventType: "ui_feedback",
			Payload: map[string]any{"feedback_text": "works great"}},
		{TSUTC: "2025-06-10T21:00:00Z", EventType: "launcher_start"},
	}

	errs, feedback, success := Split(events, loc)
	if len(errs) != 1 || len(feedback) != 1 || len(success) != 1 {
		t.Fatalf("split = %d/%d/%d, want 1/1/1", len(errs), len(feedback), len(success))
	}

	s := success[0]
	// 18:30 UTC is 13:30 in Chicago during DST.
	if s.Date != "2025-06-10" || s.Time != "13:30:00" {
		t.Errorf("local timestamp = %s %s, want 2025-06-10 13:30:00", s.Date, s.Time)
	}
	if s.ReleaseType != "standard" {
		t.Errorf("release type = %q, want standard", s.ReleaseType)
	}
	if s.TimingsTotal != 1.734 {
		t.Errorf("timings total = %v, want 1.734", s.TimingsTotal)
	}
	if !strings.Contains(s.TimingsClean, "render_s=1.234") {
		t.Errorf("timings breakdown missing render_s: %q", s.TimingsClean)
	}
	if !strings.HasSuffix(s.TimingsClean, "total_s=1.734") {
		t.Errorf("timings breakdown missing total: %q", s.TimingsClean)
	}

	if feedback[0].FeedbackText != "works great" {
		t.Errorf("feedback text = %q", feedback[0].FeedbackText)
	}
	if errs[0].Error != "export failed" {
		t.Errorf("error = %q", errs[0].Error)
	}
}

func TestSplit_BadTimestamp(t *testing.T) {
	events := []*Event{
		{TSUTC: "not a timestamp", EventType: "ui_run", Success: true},
	}
	_, _, success := Split(events, time.UTC)
	if len(success) != 1 {
		t.Fatalf("event with bad timestamp dropped")
	}
	if success[0].Date != "" || success[0].Time != "" {
		t.Errorf("bad timestamp should derive empty date/time, got %q %q",
			success[0].Date, success[0].Time)
	}
}

func TestGenerate(t *testing.T) {
	telemetryDir := t.TempDir()
	writeTelemetry(t, telemetryDir, "telemetry.jsonl",
		`{"ts_utc": "2025-06-10T18:30:00Z", "event_type": "ui_run", "user": "alice", "success": true}`,
		`{"ts_utc": "2025-06-10T19:00:00Z", "event_type": "ui_run", "user": "bob", "success": false, "error": "boom"}`,
		`{"ts_utc": "2025-06-10T20:00:00Z", "event_type": "ui_feedback", "user": "carol", "payload": {"feedback_text": "nice"}}`,
	)
	outDir := t.TempDir()

	htmlPath, err := Generate(Config{
		TelemetryDir:    telemetryDir,
		Glob:            "telemetry*.jsonl",
		MaxLinesPerFile: 1000,
		Timezone:        "America/Chicago",
		OutDir:          outDir,
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("report unreadable: %v", err)
	}
	for _, want := range []string{"alice", "bob", "carol", "boom", "nice"} {
		if !strings.Contains(string(html), want) {
			t.Errorf("report missing %q", want)
		}
	}

	for _, f := range []string{"telemetry_errors.xlsx", "telemetry_feedback.xlsx", "telemetry_success.xlsx"} {
		if _, err := os.Stat(filepath.Join(outDir, f)); err != nil {
			t.Errorf("missing export %s: %v", f, err)
		}
	}
}

func TestGenerate_UnknownTimezone(t *testing.T) {
	_, err := Generate(Config{
		TelemetryDir: t.TempDir(),
		Glob:         "*.jsonl",
		Timezone:     "Not/AZone",
		OutDir:       t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

// Package report turns the application's telemetry log records into a
// browsable HTML report and Excel exports. It is a batch transform: read the
// JSONL files, bucket the events, format, write.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/validation-tool/launcher/pkg/errors"
)

// Event is one telemetry record plus the derived presentation fields.
type Event struct {
	TSUTC     string         `json:"ts_utc"`
	EventType string         `json:"event_type"`
	User      string         `json:"user"`
	Action    string         `json:"action"`
	AppVer    string         `json:"app_version"`
	Model     string         `json:"model"`
	Success   bool           `json:"success"`
	Error     string         `json:"error"`
	Payload   map[string]any `json:"payload"`

	// Derived during Split.
	Date         string
	Time         string
	ReleaseType  string
	FeedbackText string
	Missing      string
	DraftQ       string
	TimingsClean string
	TimingsTotal float64
}

// Column maps a header name to an event field for one output table.
type Column struct {
	Name  string
	Value func(*Event) any
}

// ErrorColumns, FeedbackColumns and SuccessColumns define the three tables.
var (
	ErrorColumns = []Column{
		{"Date", func(e *Event) any { return e.Date }},
		{"Time", func(e *Event) any { return e.Time }},
		{"user", func(e *Event) any { return e.User }},
		{"action", func(e *Event) any { return e.Action }},
		{"app_version", func(e *Event) any { return e.AppVer }},
		{"model", func(e *Event) any { return e.Model }},
		{"release", func(e *Event) any { return e.ReleaseType }},
		{"error", func(e *Event) any { return e.Error }},
	}
	FeedbackColumns = []Column{
		{"Date", func(e *Event) any { return e.Date }},
		{"Time", func(e *Event) any { return e.Time }},
		{"user", func(e *Event) any { return e.User }},
		{"app_version", func(e *Event) any { return e.AppVer }},
		{"model", func(e *Event) any { return e.Model }},
		{"feedback_text", func(e *Event) any { return e.FeedbackText }},
		{"release", func(e *Event) any { return e.ReleaseType }},
	}
	SuccessColumns = []Column{
		{"Date", func(e *Event) any { return e.Date }},
		{"Time", func(e *Event) any { return e.Time }},
		{"user", func(e *Event) any { return e.User }},
		{"action", func(e *Event) any { return e.Action }},
		{"app_version", func(e *Event) any { return e.AppVer }},
		{"model", func(e *Event) any { return e.Model }},
		{"release", func(e *Event) any { return e.ReleaseType }},
		{"missing", func(e *Event) any { return e.Missing }},
		{"draft_q", func(e *Event) any { return e.DraftQ }},
		{"timings_s", func(e *Event) any { return e.TimingsClean }},
		{"total_s", func(e *Event) any { return e.TimingsTotal }},
	}
)

// ReadDir reads every telemetry file in dir matching glob, keeping at most
// maxLines records per file (the newest tail). Malformed lines are skipped.
// Events are returned newest-first by timestamp.
func ReadDir(dir, glob string, maxLines int) ([]*Event, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, errors.Wrap(err, "bad telemetry glob")
	}
	sort.Strings(matches)

	var events []*Event
	for _, path := range matches {
		fileEvents, err := readFile(path, maxLines)
		if err != nil {
			slog.Warn("telemetry_file_skipped", "path", path, "error", err)
			continue
		}
		events = append(events, fileEvents...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TSUTC > events[j].TSUTC
	})
	return events, nil
}

func readFile(path string, maxLines int) ([]*Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var events []*Event
	for _, line := range lines {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		events = append(events, &e)
	}
	return events, nil
}

// Split buckets events into errors, feedback, and successful runs, deriving
// the presentation fields along the way. Timestamps are converted from UTC to
// loc; timing payloads are flattened from milliseconds to seconds.
func Split(events []*Event, loc *time.Location) (errs, feedback, success []*Event) {
	for _, e := range events {
		e.derive(loc)
		switch e.EventType {
		case "ui_feedback":
			feedback = append(feedback, e)
		case "ui_run":
			if e.Success {
				success = append(success, e)
			} else {
				errs = append(errs, e)
			}
		}
	}
	return errs, feedback, success
}

func (e *Event) derive(loc *time.Location) {
	e.Date, e.Time = splitTimestamp(e.TSUTC, loc)
	e.ReleaseType = payloadString(e.Payload, "release_type")
	e.FeedbackText = payloadString(e.Payload, "feedback_text")
	e.Missing = payloadString(e.Payload, "missing_placeholders_count")
	e.DraftQ = payloadString(e.Payload, "draft_questions_count")

	timings := timingsToSeconds(e.Payload["timings_ms"])
	e.TimingsClean = formatTimings(timings)
	e.TimingsTotal = totalTimings(timings)
}

// splitTimestamp converts an RFC3339 UTC timestamp into local date and time
// strings. Unparseable input yields empty strings rather than an error row.
func splitTimestamp(ts string, loc *time.Location) (string, string) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "", ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "", ""
	}
	local := t.In(loc)
	return local.Format("2006-01-02"), local.Format("15:04:05")
}

// payloadString renders any payload value as a display string; nil becomes "".
func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// timingsToSeconds converts a payload timings_ms object into seconds, keyed
// with the _ms suffix rewritten to _s. Non-numeric values are dropped.
func timingsToSeconds(raw any) map[string]float64 {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		ms, ok := v.(float64)
		if !ok {
			continue
		}
		key := strings.Replace(k, "_ms", "_s", 1)
		out[key] = round3(ms / 1000.0)
	}
	return out
}

// formatTimings renders the timing breakdown as sorted "key=1.234" lines plus
// a trailing total.
func formatTimings(timings map[string]float64) string {
	if len(timings) == 0 {
		return ""
	}
	keys := make([]string, 0, len(timings))
	for k := range timings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	total := 0.0
	for _, k := range keys {
		total += timings[k]
		fmt.Fprintf(&b, "%s=%.3f\n", k, timings[k])
	}
	fmt.Fprintf(&b, "total_s=%.3f", total)
	return b.String()
}

func totalTimings(timings map[string]float64) float64 {
	total := 0.0
	for _, v := range timings {
		total += v
	}
	return round3(total)
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}

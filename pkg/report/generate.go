package report

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/validation-tool/launcher/pkg/errors"
)

// Config describes one report generation run.
type Config struct {
	// TelemetryDir holds the telemetry JSONL files.
	TelemetryDir string
	// Glob selects the telemetry files, e.g. "telemetry*.jsonl".
	Glob string
	// MaxLinesPerFile bounds how much of each file's tail is read.
	MaxLinesPerFile int
	// Timezone is the IANA zone the report's timestamps are shown in.
	Timezone string
	// OutDir receives the report and the workbooks.
	OutDir string
}

// Generate reads the telemetry files and writes the three Excel exports plus
// the HTML report. It returns the report path. Missing telemetry is not an
// error; the report is simply empty.
func Generate(cfg Config) (string, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return "", errors.Wrapf(err, "unknown timezone %q", cfg.Timezone)
	}

	events, err := ReadDir(cfg.TelemetryDir, cfg.Glob, cfg.MaxLinesPerFile)
	if err != nil {
		return "", err
	}
	errs, feedback, success := Split(events, loc)
	slog.Info("telemetry_events_read", "total", len(events),
		"errors", len(errs), "feedback", len(feedback), "success", len(success))

	exports := []struct {
		file    string
		sheet   string
		events  []*Event
		columns []Column
	}{
		{"telemetry_errors.xlsx", "Errors", errs, ErrorColumns},
		{"telemetry_feedback.xlsx", "Feedback", feedback, FeedbackColumns},
		{"telemetry_success.xlsx", "Successful Runs", success, SuccessColumns},
	}
	for _, ex := range exports {
		path := filepath.Join(cfg.OutDir, ex.file)
		if err := WriteXLSX(path, ex.sheet, ex.events, ex.columns); err != nil {
			return "", errors.Wrapf(err, "export %s", ex.file)
		}
		slog.Info("telemetry_export_written", "path", path, "rows", len(ex.events))
	}

	htmlPath := filepath.Join(cfg.OutDir, "telemetry_report.html")
	if err := WriteHTML(htmlPath, errs, feedback, success); err != nil {
		return "", err
	}
	slog.Info("telemetry_report_written", "path", htmlPath)
	return htmlPath, nil
}

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/validation-tool/launcher/internal/config"
	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/report"
)

var (
	reportOutDir string
	reportNoOpen bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the telemetry report (Excel exports plus HTML summary)",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportOutDir, "out", ".", "Output directory for the report files")
	reportCmd.Flags().BoolVar(&reportNoOpen, "no-open", false, "Do not open the report in the browser")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if err := os.MkdirAll(reportOutDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	htmlPath, err := report.Generate(report.Config{
		TelemetryDir:    cfg.TelemetryDir,
		Glob:            cfg.TelemetryGlob,
		MaxLinesPerFile: cfg.TelemetryMaxLines,
		Timezone:        cfg.ReportTimezone,
		OutDir:          reportOutDir,
	})
	if err != nil {
		return errors.Wrap(err, "report generation failed")
	}

	fmt.Printf("Report written: %s\n", htmlPath)

	if !reportNoOpen {
		if err := browser.OpenURL(htmlPath); err != nil {
			slog.Warn("report_open_failed", "path", htmlPath, "error", err)
		}
	}
	return nil
}

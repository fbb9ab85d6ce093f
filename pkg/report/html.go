package report

import (
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/validation-tool/launcher/pkg/errors"
)

const reportTemplate = `<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>Validation Logs</title>
  <style>
    body { font-family: system-ui, -apple-system, sans-serif; padding: 18px; background:#f8fafc; color:#0f172a; }
    h1 { margin: 0 0 6px; }
    h2 { margin-top: 24px; }
    .muted { color:#475569; }
    .pill { display:inline-block; padding:3px 8px; border-radius:999px; background:#eef2ff; border:1px solid rgba(37,99,235,0.18); color:#334155; font-size:12px; }
    .errpill { background:#fee2e2; border-color:#fecaca; color:#991b1b; }
    table { width:100%; border-collapse: collapse; background:#fff; border:1px solid rgba(15,23,42,0.12); border-radius: 10px; overflow:hidden; }
    th, td { text-align:left; padding:10px 12px; border-bottom:1px solid rgba(15,23,42,0.08); vertical-align: top; font-size: 13px; }
    th { background:#f1f5f9; font-size: 13px; user-select: none; }
    code { font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace; font-size: 12px; }
    .mono { white-space: pre; }
    .wrap { max-width: 100%; overflow-x:auto; }
  </style>
</head>
<body>
  <h1>Validation Logs</h1>
  <div class="muted" style="margin: 8px 0 14px;">
    <div><strong>Exports (Excel):</strong>
      <a href="telemetry_errors.xlsx">Errors</a> &bull;
      <a href="telemetry_feedback.xlsx">Feedback</a> &bull;
      <a href="telemetry_success.xlsx">Successful Runs</a>
    </div>
    <div>Generated {{.GeneratedAt}}</div>
  </div>
{{- range .Tables}}
  <h2>{{.Title}} <span class="pill{{if .Err}} errpill{{end}}">{{len .Rows}}</span></h2>
  <div class="wrap">
    <table>
      <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
      <tbody>
      {{- range .Rows}}
        <tr>{{range .}}<td>{{if .Mono}}<code class="mono">{{.Text}}</code>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
      {{- end}}
      </tbody>
    </table>
  </div>
{{- end}}
</body>
</html>
`

type htmlCell struct {
	Text string
	Mono bool
}

type htmlTable struct {
	Title   string
	Err     bool
	Headers []string
	Rows    [][]htmlCell
}

type htmlPage struct {
	GeneratedAt string
	Tables      []htmlTable
}

// WriteHTML renders the three event tables into a single report page.
func WriteHTML(path string, errs, feedback, success []*Event) error {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return errors.Wrap(err, "bad report template")
	}

	page := htmlPage{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Tables: []htmlTable{
			buildTable("Errors", true, errs, ErrorColumns),
			buildTable("Feedback", false, feedback, FeedbackColumns),
			buildTable("Successful Runs", false, success, SuccessColumns),
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create report file")
	}
	err = tmpl.Execute(f, page)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, "failed to render report")
}

func buildTable(title string, isErr bool, events []*Event, columns []Column) htmlTable {
	t := htmlTable{Title: title, Err: isErr}
	for _, c := range columns {
		t.Headers = append(t.Headers, c.Name)
	}
	for _, e := range events {
		row := make([]htmlCell, 0, len(columns))
		for _, c := range columns {
			text := cellString(c.Value(e))
			row = append(row, htmlCell{Text: text, Mono: strings.Contains(text, "\n")})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

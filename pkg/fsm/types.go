package fsm

import "github.com/validation-tool/launcher/pkg/manifest"

// LaunchRequest is the FSM input: the caller-supplied arguments to forward to
// the application.
type LaunchRequest struct {
	Args []string
}

// LaunchResponse is the FSM output (accumulated across transitions). Two
// flags short-circuit the rest of the pipeline: HandoffStarted (the launcher
// is being replaced; this process must exit) and Reused (a live up-to-date
// instance was presented instead of launching a new one).
type LaunchResponse struct {
	// From FetchManifest. Manifest is nil when no update information is
	// available; that is expected, not an error.
	Manifest        *manifest.Manifest
	ManifestVersion string

	// From SelfUpdate
	HandoffStarted bool

	// From Coordinate
	Reused   bool
	ReuseURL string
	Outcome  string

	// From InstallApp / InstallTools
	AppPath   string
	ToolsPath string

	// From Launch
	LaunchedPID int
	Status      string
}

// ShortCircuit reports whether a later pipeline state should no-op because an
// earlier state already decided the run.
func (r *LaunchResponse) ShortCircuit() bool {
	return r != nil && (r.HandoffStarted || r.Reused)
}

// State names
const (
	StateFetchManifest = "fetch_manifest"
	StateSelfUpdate    = "self_update"
	StateCoordinate    = "coordinate"
	StateInstallApp    = "install_app"
	StateInstallTools  = "install_tools"
	StateLaunch        = "launch"
	StateFailed        = "failed"
)

// Status values reported in LaunchResponse.Status.
const (
	StatusLaunched = "launched"
	StatusReused   = "reused"
	StatusHandoff  = "handoff"
)

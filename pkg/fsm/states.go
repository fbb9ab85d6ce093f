package fsm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/superfly/fsm"

	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/install"
	"github.com/validation-tool/launcher/pkg/instance"
	"github.com/validation-tool/launcher/pkg/manifest"
	"github.com/validation-tool/launcher/pkg/selfupdate"
)

// Machine holds dependencies for the launch pipeline transitions.
type Machine struct {
	state      *install.State
	fetcher    *manifest.Fetcher
	installer  *install.Installer
	coord      *instance.Coordinator
	updater    *selfupdate.Updater
	maxRetries int

	// openURL presents a reused instance to the user; launch starts the
	// application detached. Both injectable for tests.
	openURL func(url string) error
	launch  func(exe string, args []string, dir string) (int, error)
}

// NewMachine creates the launch pipeline machine with dependencies.
func NewMachine(
	state *install.State,
	fetcher *manifest.Fetcher,
	installer *install.Installer,
	coord *instance.Coordinator,
	updater *selfupdate.Updater,
	openURL func(url string) error,
	launch func(exe string, args []string, dir string) (int, error),
	maxRetries int,
) *Machine {
	return &Machine{
		state:      state,
		fetcher:    fetcher,
		installer:  installer,
		coord:      coord,
		updater:    updater,
		openURL:    openURL,
		launch:     launch,
		maxRetries: maxRetries,
	}
}

// retryGuard aborts the FSM when a transition has been retried past the
// configured bound. Within one launcher run nothing is retried by design;
// the guard keeps a persisted-and-resumed pipeline from looping.
func (m *Machine) retryGuard(ctx context.Context, state string) error {
	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "state", state, "max_retries", m.maxRetries)
		return fsm.Abort(fmt.Errorf("max retries (%d) exceeded in %s", m.maxRetries, state))
	}
	return nil
}

// handleFetchManifest retrieves the distribution manifest. A missing or
// unreadable manifest is not a failure; the run continues on local state.
func (m *Machine) handleFetchManifest(ctx context.Context, req *fsm.Request[LaunchRequest, LaunchResponse]) (*fsm.Response[LaunchResponse], error) {
	slog.Info("fsm_state_fetch_manifest")
	if err := m.retryGuard(ctx, StateFetchManifest); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &LaunchResponse{}
	}

	man := m.fetcher.Fetch(ctx)
	resp.Manifest = man
	if man.HasUpdateInfo() {
		resp.ManifestVersion = man.Version
	}

	return fsm.NewResponse(resp), nil
}

// handleSelfUpdate replaces the launcher's own binary when the manifest
// advertises a different one. When the handoff helper has been spawned the
// rest of the pipeline no-ops and the process exits.
func (m *Machine) handleSelfUpdate(ctx context.Context, req *fsm.Request[LaunchRequest, LaunchResponse]) (*fsm.Response[LaunchResponse], error) {
	slog.Info("fsm_state_self_update")
	if err := m.retryGuard(ctx, StateSelfUpdate); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	// A previous handoff may have left its staged binary behind.
	m.updater.CleanupStaging()

	started, err := m.updater.TryUpdateSelf(ctx, resp.Manifest, req.Msg.Args)
	if err != nil {
		// Self-update is never fatal; run with the current launcher.
		slog.Warn("self_update_skipped", "error", err)
	}
	if started {
		resp.HandoffStarted = true
		resp.Status = StatusHandoff
	}

	return fsm.NewResponse(resp), nil
}

// handleCoordinate retires or reuses an already-running instance. An
// un-retirable instance aborts the pipeline; it is the one failure that must
// surface to the user.
func (m *Machine) handleCoordinate(ctx context.Context, req *fsm.Request[LaunchRequest, LaunchResponse]) (*fsm.Response[LaunchResponse], error) {
	slog.Info("fsm_state_coordinate")
	if err := m.retryGuard(ctx, StateCoordinate); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.ShortCircuit() {
		return fsm.NewResponse(resp), nil
	}

	desc := instance.ReadDescriptor(m.state.Dir)
	outcome, err := m.coord.Retire(ctx, desc, resp.ManifestVersion)
	if err != nil {
		return nil, fsm.Abort(err)
	}
	resp.Outcome = outcome.String()

	if outcome == instance.OutcomeReuse {
		resp.Reused = true
		resp.ReuseURL = desc.BaseURL()
		resp.Status = StatusReused
		if err := m.openURL(resp.ReuseURL); err != nil {
			slog.Warn("reuse_open_failed", "url", resp.ReuseURL, "error", err)
		}
	}

	return fsm.NewResponse(resp), nil
}

// handleInstallApp brings the application binary up to date. Download,
// integrity, and write failures all degrade to the previous installation.
func (m *Machine) handleInstallApp(ctx context.Context, req *fsm.Request[LaunchRequest, LaunchResponse]) (*fsm.Response[LaunchResponse], error) {
	slog.Info("fsm_state_install_app")
	if err := m.retryGuard(ctx, StateInstallApp); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	resp.AppPath = m.state.AppPath()
	if resp.ShortCircuit() {
		return fsm.NewResponse(resp), nil
	}

	man := resp.Manifest
	if !man.HasUpdateInfo() {
		slog.Info("install_app_no_manifest")
		return fsm.NewResponse(resp), nil
	}

	if _, err := m.installer.Install(ctx, install.ArtifactSpec{
		Name:       "app",
		TargetPath: m.state.AppPath(),
		SourceURL:  man.URL,
		SHA256:     man.SHA256,
		Version:    man.Version,
	}); err != nil {
		slog.Warn("install_app_failed", "error", err)
	}

	return fsm.NewResponse(resp), nil
}

// handleInstallTools installs the auxiliary tool when the manifest advertises
// one. The tool is optional; failures only skip it.
func (m *Machine) handleInstallTools(ctx context.Context, req *fsm.Request[LaunchRequest, LaunchResponse]) (*fsm.Response[LaunchResponse], error) {
	slog.Info("fsm_state_install_tools")
	if err := m.retryGuard(ctx, StateInstallTools); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.ShortCircuit() {
		return fsm.NewResponse(resp), nil
	}

	man := resp.Manifest
	if man == nil || man.PBIToolsURL == "" {
		return fsm.NewResponse(resp), nil
	}

	path, err := m.installer.Install(ctx, install.ArtifactSpec{
		Name:       "pbi-tools",
		TargetPath: m.state.ToolsPath(),
		SourceURL:  man.PBIToolsURL,
		SHA256:     man.PBIToolsSHA256,
	})
	if err != nil {
		slog.Warn("install_tools_failed", "error", err)
	}
	if install.Exists(path) {
		resp.ToolsPath = path
	}

	return fsm.NewResponse(resp), nil
}

// handleLaunch starts the application detached. No runnable binary after all
// install attempts is the second and last fatal, user-visible failure.
func (m *Machine) handleLaunch(ctx context.Context, req *fsm.Request[LaunchRequest, LaunchResponse]) (*fsm.Response[LaunchResponse], error) {
	slog.Info("fsm_state_launch")
	if err := m.retryGuard(ctx, StateLaunch); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.ShortCircuit() {
		return fsm.NewResponse(resp), nil
	}

	if !install.Exists(resp.AppPath) {
		slog.Error("no_runnable_binary", "path", resp.AppPath)
		return nil, fsm.Abort(errors.ErrNoBinary)
	}

	pid, err := m.launch(resp.AppPath, req.Msg.Args, m.state.Dir)
	if err != nil {
		return nil, fsm.Abort(errors.Wrap(err, "application start failed"))
	}
	resp.LaunchedPID = pid
	resp.Status = StatusLaunched

	slog.Info("fsm_complete", "status", resp.Status, "pid", pid)
	return fsm.NewResponse(resp), nil
}

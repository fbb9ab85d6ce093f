package instance

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/install"
	"github.com/validation-tool/launcher/pkg/proc"
	"github.com/validation-tool/launcher/pkg/version"
)

// tokenHeader authenticates the shutdown request to the running instance.
const tokenHeader = "X-Validation-Token"

// maxProbeBody bounds the ping response read.
const maxProbeBody = 4 * 1024

// Outcome is the coordinator's decision for this run.
type Outcome int

const (
	// OutcomeNoInstance means no live prior instance; install and launch.
	OutcomeNoInstance Outcome = iota
	// OutcomeReuse means a live instance already runs the latest version;
	// present it and stop without installing or relaunching.
	OutcomeReuse
	// OutcomeRetired means a prior instance was running and has been shut
	// down (gracefully or by force); install and launch.
	OutcomeRetired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoInstance:
		return "no_instance"
	case OutcomeReuse:
		return "reuse"
	case OutcomeRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// ProbeResult is the liveness endpoint's reply.
type ProbeResult struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// Coordinator negotiates the handoff with a running instance. All waits are
// bounded: a fixed poll interval with hard attempt caps for the graceful and
// the escalated phase, so the coordinator can never hang on an unresponsive
// peer.
type Coordinator struct {
	state         *install.State
	client        *http.Client
	probeTimeout  time.Duration
	pollInterval  time.Duration
	gracefulPolls int
	killPolls     int

	// Injection points for tests.
	sleep      func(time.Duration)
	resolveExe func(pid int) (string, error)
	kill       func(pid int) error
}

// NewCoordinator creates a coordinator over the given installation state.
func NewCoordinator(state *install.State, probeTimeout, shutdownTimeout, pollInterval time.Duration, gracefulPolls, killPolls int) *Coordinator {
	return &Coordinator{
		state:         state,
		client:        &http.Client{Timeout: shutdownTimeout},
		probeTimeout:  probeTimeout,
		pollInterval:  pollInterval,
		gracefulPolls: gracefulPolls,
		killPolls:     killPolls,
		sleep:         time.Sleep,
		resolveExe:    proc.ResolveExecutable,
		kill:          proc.Kill,
	}
}

// Retire drives the per-run handoff ladder against the instance described by
// d (which may be nil). manifestVersion is the latest advertised version, or
// "" when the manifest carried no update information; in that case a live
// instance is reused, since update availability cannot be determined.
//
// The only error returned is errors.ErrInstanceBlocked (possibly wrapped):
// a prior instance that survives graceful shutdown and forced termination is
// the one failure that must surface to the user, because proceeding would
// risk two concurrent instances corrupting shared state.
func (c *Coordinator) Retire(ctx context.Context, d *Descriptor, manifestVersion string) (Outcome, error) {
	if d == nil {
		slog.Info("coordinate_no_runtime_descriptor")
		return OutcomeNoInstance, nil
	}

	res := c.probe(ctx, d)
	if res == nil {
		// Stale descriptor; the process is gone.
		slog.Info("coordinate_instance_not_running", "endpoint", d.BaseURL())
		return OutcomeNoInstance, nil
	}

	if manifestVersion == "" || version.Equal(res.Version, manifestVersion) {
		slog.Info("coordinate_reuse_running_instance",
			"endpoint", d.BaseURL(), "running_version", res.Version, "latest_version", manifestVersion)
		return OutcomeReuse, nil
	}

	slog.Info("coordinate_retire_outdated_instance",
		"endpoint", d.BaseURL(), "running_version", res.Version, "latest_version", manifestVersion)

	if d.Token != "" {
		c.requestShutdown(ctx, d)
		if c.waitExit(ctx, d, c.gracefulPolls) {
			slog.Info("coordinate_instance_exited", "phase", "graceful")
			return OutcomeRetired, nil
		}
		slog.Warn("coordinate_graceful_shutdown_exhausted", "polls", c.gracefulPolls)
	} else {
		slog.Warn("coordinate_no_shutdown_token")
	}

	if err := c.escalateKill(d); err != nil {
		return OutcomeNoInstance, err
	}
	if c.waitExit(ctx, d, c.killPolls) {
		slog.Info("coordinate_instance_exited", "phase", "forced")
		return OutcomeRetired, nil
	}

	slog.Error("coordinate_instance_blocked", "endpoint", d.BaseURL(), "pid", d.PID)
	return OutcomeNoInstance, errors.ErrInstanceBlocked
}

// probe issues one bounded-timeout liveness check. Any transport error,
// non-200 status, or malformed body means "not running".
func (c *Coordinator) probe(ctx context.Context, d *Descriptor) *ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL()+"/ping", nil)
	if err != nil {
		return nil
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil
	}
	var res ProbeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}
	if !res.OK {
		return nil
	}
	return &res
}

// requestShutdown sends exactly one authenticated shutdown request. Only
// transport-level success matters; the response content is ignored.
func (c *Coordinator) requestShutdown(ctx context.Context, d *Descriptor) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL()+"/shutdown", nil)
	if err != nil {
		return
	}
	req.Header.Set(tokenHeader, d.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("shutdown_request_failed", "endpoint", d.BaseURL(), "error", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	slog.Info("shutdown_requested", "endpoint", d.BaseURL(), "status", resp.StatusCode)
}

// waitExit polls the liveness probe at the fixed interval, at most polls
// times, and reports whether the instance stopped responding.
func (c *Coordinator) waitExit(ctx context.Context, d *Descriptor, polls int) bool {
	for i := 0; i < polls; i++ {
		c.sleep(c.pollInterval)
		if c.probe(ctx, d) == nil {
			return true
		}
	}
	return false
}

// escalateKill forcibly terminates the descriptor's pid after verifying the
// pid actually belongs to this installation (see guard.go). An unverifiable
// target is treated as blocked rather than killed.
func (c *Coordinator) escalateKill(d *Descriptor) error {
	exe, err := c.resolveExe(d.PID)
	if err != nil {
		slog.Warn("kill_target_unresolvable", "pid", d.PID, "error", err)
		return errors.Wrap(errors.ErrInstanceBlocked, "termination target unresolvable")
	}
	if !c.validKillTarget(exe) {
		slog.Error("kill_target_rejected", "pid", d.PID, "exe", exe, "install_dir", c.state.Dir)
		return errors.Wrap(errors.ErrInstanceBlocked, "termination target outside install directory")
	}

	slog.Warn("escalate_forced_termination", "pid", d.PID, "exe", exe)
	if err := c.kill(d.PID); err != nil {
		slog.Warn("forced_termination_failed", "pid", d.PID, "error", err)
	}
	return nil
}

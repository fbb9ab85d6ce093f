package commands

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"

	"github.com/validation-tool/launcher/internal/config"
	"github.com/validation-tool/launcher/pkg/alert"
	"github.com/validation-tool/launcher/pkg/errors"
	appfsm "github.com/validation-tool/launcher/pkg/fsm"
	"github.com/validation-tool/launcher/pkg/install"
	"github.com/validation-tool/launcher/pkg/instance"
	"github.com/validation-tool/launcher/pkg/journal"
	"github.com/validation-tool/launcher/pkg/manifest"
	"github.com/validation-tool/launcher/pkg/proc"
	"github.com/validation-tool/launcher/pkg/selfupdate"
	"github.com/validation-tool/launcher/pkg/source"
)

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	state := install.NewState(cfg.AppDir, cfg.AppExe, cfg.ToolsExe)
	if err := state.Ensure(); err != nil {
		return errors.Wrap(err, "install directory setup failed")
	}
	if err := ensureDirectories(cfg.StateDir(), cfg.FSMDBPath()); err != nil {
		return err
	}

	// The journal is an audit trail; a launch proceeds without it.
	var jr install.Journal
	if j, err := journal.Open(cfg.JournalPath()); err != nil {
		slog.Warn("journal_unavailable", "path", cfg.JournalPath(), "error", err)
	} else {
		jr = j
		defer j.Close()
	}

	src := source.NewClient(cfg.S3Region, cfg.FetchTimeout)
	fetcher := manifest.NewFetcher(src, cfg.ManifestURL, cfg.FetchTimeout)
	installer := install.NewInstaller(state, src, jr)
	coord := instance.NewCoordinator(state,
		cfg.ProbeTimeout, cfg.ShutdownTimeout, cfg.PollInterval,
		cfg.GracefulPolls, cfg.KillPolls)
	updater := selfupdate.NewUpdater(state, src)

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath()})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := appfsm.NewMachine(state, fetcher, installer, coord, updater,
		browser.OpenURL, proc.Launch, cfg.FSMMaxRetries)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	req := &appfsm.LaunchRequest{Args: args}
	resp := &appfsm.LaunchResponse{}

	runID := time.Now().UTC().Format("launch-20060102-150405.000")
	version, err := start(ctx, runID, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm started", "version", version)

	if err := manager.Wait(ctx, version); err != nil {
		return fatalExit(err)
	}

	slog.Info("launch completed", "status", resp.Status,
		"outcome", resp.Outcome, "pid", resp.LaunchedPID)
	return nil
}

// fatalExit maps the two unrecoverable pipeline failures to a user-visible
// alert and exit code 1. Anything else propagates as an ordinary error.
func fatalExit(err error) error {
	notifier := alert.Default()
	switch {
	case stderrors.Is(err, errors.ErrInstanceBlocked):
		notifier.Fatal("Validation Tool is busy",
			"A running instance could not be closed. Close it manually and try again.")
	case stderrors.Is(err, errors.ErrNoBinary):
		notifier.Fatal("Validation Tool is not installed",
			"No application binary is installed and the update could not be downloaded.\n"+
				"Check the network connection and try again.")
	default:
		return errors.Wrap(err, "launch pipeline failed")
	}
	os.Exit(1)
	return nil
}

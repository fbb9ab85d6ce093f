// Package proc starts the managed application as a detached child process and
// resolves process identity for the coordinator's termination guard.
package proc

import (
	"log/slog"
	"os/exec"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/validation-tool/launcher/pkg/errors"
)

// Launch starts exePath as a detached child with the working directory set to
// workDir and args forwarded verbatim. It does not wait for the child; the
// returned pid is informational only.
func Launch(exePath string, args []string, workDir string) (int, error) {
	cmd := exec.Command(exePath, args...)
	cmd.Dir = workDir
	cmd.SysProcAttr = detachAttr()

	if err := cmd.Start(); err != nil {
		slog.Error("process_launch_failed", "exe", exePath, "error", err)
		return 0, errors.Wrap(err, "failed to start process")
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		slog.Warn("process_release_failed", "pid", pid, "error", err)
	}

	slog.Info("process_launched", "exe", exePath, "pid", pid, "args", len(args))
	return pid, nil
}

// ResolveExecutable returns the executable path backing pid. Used to verify a
// termination target actually belongs to the install directory before a
// forced kill.
func ResolveExecutable(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", errors.Wrapf(err, "pid %d not found", pid)
	}
	exe, err := p.Exe()
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve executable for pid %d", pid)
	}
	return exe, nil
}

// Kill forcibly terminates pid.
func Kill(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return errors.Wrapf(err, "pid %d not found", pid)
	}
	return errors.Wrapf(p.Kill(), "failed to kill pid %d", pid)
}

// Alive reports whether pid refers to a live process.
func Alive(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

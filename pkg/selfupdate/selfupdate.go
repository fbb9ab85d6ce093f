// Package selfupdate replaces the launcher's own executable. A running binary
// cannot overwrite its backing file, so the update is a two-process protocol:
// stage the verified new binary inside the install directory, spawn it as a
// detached helper, and exit; the helper waits for this process to die, copies
// the staged file over the live launcher path, and relaunches it.
package selfupdate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/install"
	"github.com/validation-tool/launcher/pkg/manifest"
	"github.com/validation-tool/launcher/pkg/proc"
	"github.com/validation-tool/launcher/pkg/source"
)

// HandoffCommand is the hidden subcommand the staged binary is spawned with.
const HandoffCommand = "handoff"

// stagingStem names the staged replacement binary inside the install dir.
const stagingStem = "launcher-next"

// Source downloads an artifact from the distribution channel.
type Source interface {
	Fetch(ctx context.Context, rawURL, destPath string) (*source.FetchResult, error)
}

// Updater stages and hands off launcher self-updates.
type Updater struct {
	state *install.State
	src   Source

	// Injection points for tests.
	execPath func() (string, error)
	spawn    func(exe string, args []string, dir string) (int, error)
}

// NewUpdater creates a self-updater over the given installation state.
func NewUpdater(state *install.State, src Source) *Updater {
	return &Updater{
		state:    state,
		src:      src,
		execPath: os.Executable,
		spawn:    proc.Launch,
	}
}

// StagingPath returns where the replacement binary is staged. The extension
// follows the running binary so the helper relaunch works on every platform.
func (u *Updater) StagingPath() string {
	ext := ""
	if self, err := u.execPath(); err == nil {
		ext = filepath.Ext(self)
	}
	return filepath.Join(u.state.Dir, stagingStem+ext)
}

// CleanupStaging removes a leftover staged binary from a completed handoff.
// The helper cannot always unlink its own image, so the relaunched (updated)
// launcher does it on the next startup.
func (u *Updater) CleanupStaging() {
	path := u.StagingPath()
	if !install.Exists(path) {
		return
	}
	if err := os.Remove(path); err != nil {
		slog.Warn("staging_cleanup_failed", "path", path, "error", err)
		return
	}
	slog.Info("staging_cleaned", "path", path)
}

// TryUpdateSelf checks whether the manifest advertises a different launcher
// binary and, if so, stages it and spawns the detached handoff helper.
// It returns true when the handoff is in progress and the caller must exit
// immediately without doing anything else. Every failure on this path is
// soft: the run simply continues with the current launcher.
func (u *Updater) TryUpdateSelf(ctx context.Context, m *manifest.Manifest, args []string) (bool, error) {
	if !m.HasLauncherInfo() {
		return false, nil
	}

	self, err := u.execPath()
	if err != nil {
		return false, errors.Wrap(err, "cannot resolve own executable")
	}

	selfSHA, err := hashFile(self)
	if err != nil {
		return false, errors.Wrap(err, "cannot hash own executable")
	}
	if strings.EqualFold(selfSHA, m.LauncherSHA256) {
		slog.Info("launcher_up_to_date", "sha256", selfSHA[:16]+"...")
		return false, nil
	}

	staging := u.StagingPath()
	res, err := u.src.Fetch(ctx, m.LauncherURL, staging)
	if err != nil {
		return false, errors.Wrap(err, "launcher download failed")
	}
	if !strings.EqualFold(res.SHA256, m.LauncherSHA256) {
		os.Remove(staging)
		slog.Warn("launcher_hash_mismatch", "expected", m.LauncherSHA256, "actual", res.SHA256)
		return false, errors.Wrap(install.ErrIntegrity, "launcher artifact")
	}
	if err := os.Chmod(staging, 0o755); err != nil {
		os.Remove(staging)
		return false, errors.Wrap(err, "cannot mark staged launcher executable")
	}

	helperArgs := []string{
		HandoffCommand,
		"--target", self,
		"--parent-pid", strconv.Itoa(os.Getpid()),
		"--",
	}
	helperArgs = append(helperArgs, args...)

	if _, err := u.spawn(staging, helperArgs, u.state.Dir); err != nil {
		os.Remove(staging)
		return false, errors.Wrap(err, "failed to spawn handoff helper")
	}

	slog.Info("handoff_started", "staging", staging, "target", self)
	return true, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

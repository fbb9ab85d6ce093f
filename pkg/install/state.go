// Package install manages the local installation: the install directory, the
// version marker, and integrity-verified atomic artifact installation.
package install

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/validation-tool/launcher/pkg/errors"
)

// markerName is the plain-text file holding the trimmed version string of the
// currently installed application binary.
const markerName = "version.txt"

// State describes the installation on disk. It is an explicit value passed to
// every component that touches the install directory; all mutation goes
// through the atomic temp-then-rename discipline.
type State struct {
	// Dir is the install directory shared across launcher runs.
	Dir string
	// AppExe is the base name of the application binary.
	AppExe string
	// ToolsExe is the base name of the auxiliary tool binary.
	ToolsExe string
}

// NewState creates an installation state rooted at dir.
func NewState(dir, appExe, toolsExe string) *State {
	return &State{Dir: dir, AppExe: appExe, ToolsExe: toolsExe}
}

// Ensure creates the install directory if missing.
func (s *State) Ensure() error {
	return errors.Wrap(os.MkdirAll(s.Dir, 0o755), "failed to create install directory")
}

// AppPath returns the full path of the application binary.
func (s *State) AppPath() string { return filepath.Join(s.Dir, s.AppExe) }

// ToolsPath returns the full path of the auxiliary tool binary.
func (s *State) ToolsPath() string { return filepath.Join(s.Dir, s.ToolsExe) }

// MarkerPath returns the full path of the version marker file.
func (s *State) MarkerPath() string { return filepath.Join(s.Dir, markerName) }

// ReadVersion returns the installed version, or "" when the marker is missing
// or unreadable. An absent marker is expected on first run.
func (s *State) ReadVersion() string {
	raw, err := os.ReadFile(s.MarkerPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// WriteVersion updates the version marker atomically. The marker and the
// application binary are only ever written together by the installer so the
// marker always reflects the installed binary.
func (s *State) WriteVersion(version string) error {
	return AtomicWriteFile(s.MarkerPath(), []byte(strings.TrimSpace(version)+"\n"), 0o644)
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// AtomicWriteFile writes data to a sibling temporary file and renames it onto
// path, so no reader ever observes a partial write.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpPath, perm)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
		slog.Error("atomic_write_failed", "path", path, "error", err)
		return errors.Wrap(err, "atomic write failed")
	}
	return nil
}

// AtomicInstallFile atomically replaces path with the contents of srcPath,
// applying perm to the result. The copy streams through a sibling temporary
// file inside the target directory so the final rename stays on one volume.
func AtomicInstallFile(srcPath, path string, perm os.FileMode) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errors.Wrap(err, "failed to open staged artifact")
	}
	defer src.Close()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmp.Name()

	_, err = io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpPath, perm)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
		slog.Error("atomic_install_failed", "path", path, "error", err)
		return errors.Wrap(err, "atomic install failed")
	}
	return nil
}

package install

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/source"
	"github.com/validation-tool/launcher/pkg/version"
)

// Source downloads an artifact from the distribution channel.
type Source interface {
	Fetch(ctx context.Context, rawURL, destPath string) (*source.FetchResult, error)
}

// Journal records install attempts. May be a no-op; journal failures never
// affect an installation.
type Journal interface {
	Record(artifact, version, sha256, sourceURL, status, errMsg string)
}

// Journal statuses.
const (
	StatusInstalled = "installed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// ArtifactSpec describes one artifact to bring up to date.
type ArtifactSpec struct {
	// Name is the artifact family name, used for logging and the journal.
	Name string
	// TargetPath is the final installed location.
	TargetPath string
	// SourceURL is where to download from.
	SourceURL string
	// SHA256, when non-empty, is the expected hash of the downloaded bytes.
	SHA256 string
	// Version, when non-empty, gates the install on the version marker and
	// causes the marker to be updated after a successful install.
	Version string
}

// Installer downloads, verifies, and atomically installs binary artifacts.
type Installer struct {
	state   *State
	src     Source
	journal Journal
}

// NewInstaller creates an installer over the given installation state.
// journal may be nil.
func NewInstaller(state *State, src Source, journal Journal) *Installer {
	return &Installer{state: state, src: src, journal: journal}
}

// Install brings the artifact described by spec up to date. It always returns
// the target path; when err is non-nil the previous installation (which may
// not exist) is untouched and the caller decides the fallback. A hash
// mismatch or download failure is never fatal to the run, only to this
// particular update.
func (i *Installer) Install(ctx context.Context, spec ArtifactSpec) (string, error) {
	target := spec.TargetPath

	if !i.needsInstall(spec) {
		slog.Info("artifact_up_to_date", "artifact", spec.Name, "target", target, "version", spec.Version)
		i.record(spec, "", StatusSkipped, "")
		return target, nil
	}

	tmpDir, err := os.MkdirTemp("", "validation-update-")
	if err != nil {
		i.record(spec, "", StatusFailed, err.Error())
		return target, errors.Wrap(err, "failed to create download directory")
	}
	defer os.RemoveAll(tmpDir)

	downloadPath := filepath.Join(tmpDir, filepath.Base(target))
	res, err := i.src.Fetch(ctx, spec.SourceURL, downloadPath)
	if err != nil {
		slog.Warn("artifact_download_failed", "artifact", spec.Name, "url", spec.SourceURL, "error", err)
		i.record(spec, "", StatusFailed, err.Error())
		return target, errors.Wrap(err, "download failed")
	}

	if spec.SHA256 != "" && !strings.EqualFold(res.SHA256, spec.SHA256) {
		slog.Warn("artifact_hash_mismatch", "artifact", spec.Name,
			"expected", spec.SHA256, "actual", res.SHA256)
		i.record(spec, res.SHA256, StatusFailed, "sha256 mismatch")
		return target, errors.Wrapf(ErrIntegrity, "artifact %s", spec.Name)
	}

	if err := AtomicInstallFile(res.LocalPath, target, 0o755); err != nil {
		i.record(spec, res.SHA256, StatusFailed, err.Error())
		return target, err
	}

	if spec.Version != "" {
		if err := i.state.WriteVersion(spec.Version); err != nil {
			// Binary replaced but marker stale; the next run re-installs.
			slog.Error("version_marker_write_failed", "artifact", spec.Name, "error", err)
			i.record(spec, res.SHA256, StatusFailed, err.Error())
			return target, err
		}
	}

	i.cleanBackups(target)
	i.record(spec, res.SHA256, StatusInstalled, "")
	slog.Info("artifact_installed", "artifact", spec.Name, "target", target,
		"version", spec.Version, "size", res.Size)
	return target, nil
}

// needsInstall implements the idempotence gate: skip when the target exists
// and the marker already covers the advertised version.
func (i *Installer) needsInstall(spec ArtifactSpec) bool {
	if !Exists(spec.TargetPath) {
		return true
	}
	if spec.Version == "" {
		// Unversioned artifact (auxiliary tool): present means done.
		return false
	}
	installed := i.state.ReadVersion()
	if installed == "" {
		return true
	}
	return version.IsNewer(spec.Version, installed)
}

// cleanBackups removes previously-kept versioned backup copies of the
// artifact family (target.old, target.old-*).
func (i *Installer) cleanBackups(target string) {
	matches, err := filepath.Glob(target + ".old*")
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			slog.Warn("backup_cleanup_failed", "path", m, "error", err)
			continue
		}
		slog.Info("backup_removed", "path", m)
	}
}

func (i *Installer) record(spec ArtifactSpec, sha, status, errMsg string) {
	if i.journal == nil {
		return
	}
	i.journal.Record(spec.Name, spec.Version, sha, spec.SourceURL, status, errMsg)
}

// ErrIntegrity marks a downloaded artifact whose hash did not match the
// manifest's declared hash. The previous installation is kept.
var ErrIntegrity = stderrors.New("artifact sha256 mismatch")

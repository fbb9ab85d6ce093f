package selfupdate

import (
	stderrors "errors"
	"log/slog"
	"os"
	"time"

	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/install"
	"github.com/validation-tool/launcher/pkg/proc"
)

// Handoff is the helper side of the self-update protocol, executed by the
// staged (new) launcher binary. The parent exits right after spawning it,
// before the copy happens, which is why the helper waits first.
type Handoff struct {
	// TargetPath is the live launcher executable to replace.
	TargetPath string
	// StagedPath is the helper's own executable, already hash-verified.
	StagedPath string
	// ParentPID is the launcher process being replaced.
	ParentPID int
	// Args are the original launch arguments, forwarded to the relaunch.
	Args []string

	WaitPolls    int
	ReplaceTries int
	PollInterval time.Duration
	RelaunchDir  string

	// Injection points for tests.
	alive func(pid int) bool
	sleep func(time.Duration)
	spawn func(exe string, args []string, dir string) (int, error)
}

// NewHandoff builds a handoff with the default bounds.
func NewHandoff(targetPath, stagedPath string, parentPID int, args []string, relaunchDir string) *Handoff {
	return &Handoff{
		TargetPath:   targetPath,
		StagedPath:   stagedPath,
		ParentPID:    parentPID,
		Args:         args,
		WaitPolls:    20,
		ReplaceTries: 10,
		PollInterval: 250 * time.Millisecond,
		RelaunchDir:  relaunchDir,
		alive:        proc.Alive,
		sleep:        time.Sleep,
		spawn:        proc.Launch,
	}
}

// Run waits for the parent to exit, replaces the launcher binary, and
// relaunches it. The staged file is removed best-effort; the relaunched
// launcher also cleans it up at startup for platforms where a running image
// cannot unlink itself.
func (h *Handoff) Run() error {
	slog.Info("handoff_wait_parent", "parent_pid", h.ParentPID)
	for i := 0; i < h.WaitPolls && h.alive(h.ParentPID); i++ {
		h.sleep(h.PollInterval)
	}
	if h.alive(h.ParentPID) {
		// Parent still running after the bound; replacing its binary now
		// would race against a live process.
		return errors.Wrapf(errParentAlive, "pid %d", h.ParentPID)
	}

	var err error
	for i := 0; i < h.ReplaceTries; i++ {
		err = install.AtomicInstallFile(h.StagedPath, h.TargetPath, 0o755)
		if err == nil {
			break
		}
		// The old binary can stay locked briefly after process exit.
		h.sleep(h.PollInterval)
	}
	if err != nil {
		return errors.Wrap(err, "failed to replace launcher binary")
	}
	slog.Info("handoff_replaced", "target", h.TargetPath)

	h.removeStaged()

	if _, err := h.spawn(h.TargetPath, h.Args, h.RelaunchDir); err != nil {
		return errors.Wrap(err, "failed to relaunch updated launcher")
	}
	slog.Info("handoff_relaunched", "target", h.TargetPath)
	return nil
}

func (h *Handoff) removeStaged() {
	if err := os.Remove(h.StagedPath); err != nil {
		// Expected on Windows: the helper is running from the staged file.
		slog.Info("staging_removal_deferred", "path", h.StagedPath, "error", err)
	}
}

// errParentAlive means the old launcher outlived the wait bound; the helper
// gives up rather than replace the binary of a live process.
var errParentAlive = stderrors.New("parent process still alive after wait bound")

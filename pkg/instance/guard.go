package instance

import (
	"path/filepath"
	"runtime"
	"strings"
)

// validKillTarget reports whether exe is the application binary inside this
// installation's directory. PIDs get reused; a descriptor left behind by a
// dead instance can point at an unrelated process, so a forced kill is only
// allowed against a process whose resolved executable path lies inside the
// install directory and carries the expected binary name.
func (c *Coordinator) validKillTarget(exe string) bool {
	exe = filepath.Clean(exe)
	dir := filepath.Clean(c.state.Dir)
	base := filepath.Base(exe)

	if runtime.GOOS == "windows" {
		// Windows paths compare case-insensitively.
		return strings.EqualFold(filepath.Dir(exe), dir) && strings.EqualFold(base, c.state.AppExe)
	}
	return filepath.Dir(exe) == dir && base == c.state.AppExe
}

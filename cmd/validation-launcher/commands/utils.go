package commands

import (
	"os"

	"github.com/validation-tool/launcher/pkg/errors"
)

// ensureDirectories creates the launcher's bookkeeping directories
func ensureDirectories(stateDir, fsmDBPath string) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}

	// FSM database directory (only needed for the launch pipeline)
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	return nil
}

package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/selfupdate"
)

var (
	handoffTarget    string
	handoffParentPID int
)

// handoffCmd is the hidden helper the staged launcher binary runs during a
// self-update. Users never invoke it directly.
var handoffCmd = &cobra.Command{
	Use:    selfupdate.HandoffCommand,
	Short:  "Internal self-update helper",
	Hidden: true,
	Args:   cobra.ArbitraryArgs,
	RunE:   runHandoff,
}

func init() {
	rootCmd.AddCommand(handoffCmd)
	handoffCmd.Flags().SetInterspersed(false)
	handoffCmd.Flags().StringVar(&handoffTarget, "target", "", "Launcher executable to replace")
	handoffCmd.Flags().IntVar(&handoffParentPID, "parent-pid", 0, "PID of the launcher being replaced")
}

func runHandoff(cmd *cobra.Command, args []string) error {
	if handoffTarget == "" || handoffParentPID <= 0 {
		return fmt.Errorf("handoff requires --target and --parent-pid (got target=%q parent-pid=%d)",
			handoffTarget, handoffParentPID)
	}

	staged, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "cannot resolve own executable")
	}

	slog.Info("handoff_helper_started", "target", handoffTarget,
		"staged", staged, "parent_pid", handoffParentPID)

	h := selfupdate.NewHandoff(handoffTarget, staged, handoffParentPID,
		args, filepath.Dir(handoffTarget))
	return h.Run()
}

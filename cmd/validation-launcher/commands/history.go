package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/validation-tool/launcher/internal/config"
	"github.com/validation-tool/launcher/pkg/errors"
	"github.com/validation-tool/launcher/pkg/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded install attempts, newest first",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if err := ensureDirectories(cfg.StateDir(), ""); err != nil {
		return err
	}

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return errors.Wrap(err, "journal open failed")
	}
	defer j.Close()

	entries, err := j.List(historyLimit)
	if err != nil {
		return errors.Wrap(err, "journal list failed")
	}

	if len(entries) == 0 {
		fmt.Println("No install history")
		return nil
	}

	fmt.Printf("%-20s %-12s %-10s %-10s %-30s\n", "WHEN", "ARTIFACT", "VERSION", "STATUS", "ERROR")
	fmt.Println("----------------------------------------------------------------------------------------")

	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}
		errMsg := e.ErrorMessage
		if errMsg == "" {
			errMsg = "-"
		}
		fmt.Printf("%-20s %-12s %-10s %-10s %-30s\n",
			e.CreatedAt, e.Artifact, version, e.Status, errMsg)
	}

	return nil
}

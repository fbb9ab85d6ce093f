package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "validation-launcher [-- application args]",
	Short: "Validation Tool launcher - update, coordinate, and start the application",
	Long: `Keeps the Validation Tool installation up to date, retires or reuses an
already-running instance, and starts the application detached. All arguments
after -- are forwarded to the application verbatim.`,
	Args: cobra.ArbitraryArgs,
	RunE: runLaunch,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Forward everything after the first positional argument untouched.
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.PersistentFlags().String("manifest-url", "", "Distribution manifest location (http(s), s3, or file path)")
	rootCmd.PersistentFlags().String("app-dir", "", "Per-user install directory")
	rootCmd.PersistentFlags().String("s3-region", "", "Region for s3:// manifest and artifact URLs")
	rootCmd.PersistentFlags().String("telemetry-dir", "", "Directory holding telemetry JSONL files")

	viper.BindPFlag("manifest-url", rootCmd.PersistentFlags().Lookup("manifest-url"))
	viper.BindPFlag("app-dir", rootCmd.PersistentFlags().Lookup("app-dir"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("telemetry-dir", rootCmd.PersistentFlags().Lookup("telemetry-dir"))
}

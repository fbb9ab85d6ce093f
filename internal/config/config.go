package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// appDirName is the per-user install directory created under the platform's
// local application data root.
const appDirName = "ValidationTool"

// Config holds all launcher configuration
type Config struct {
	// Distribution channel
	ManifestURL string `mapstructure:"manifest-url"`
	S3Region    string `mapstructure:"s3-region"`

	// Installation
	AppDir   string `mapstructure:"app-dir"`
	AppExe   string `mapstructure:"app-exe"`
	ToolsExe string `mapstructure:"tools-exe"`

	// Timeouts and polling bounds
	FetchTimeout    time.Duration `mapstructure:"fetch-timeout"`
	ProbeTimeout    time.Duration `mapstructure:"probe-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	PollInterval    time.Duration `mapstructure:"poll-interval"`
	GracefulPolls   int           `mapstructure:"graceful-polls"`
	KillPolls       int           `mapstructure:"kill-polls"`

	// Pipeline state
	FSMMaxRetries int `mapstructure:"fsm-max-retries"`

	// Telemetry report
	TelemetryDir      string `mapstructure:"telemetry-dir"`
	TelemetryGlob     string `mapstructure:"telemetry-glob"`
	TelemetryMaxLines int    `mapstructure:"telemetry-max-lines"`
	ReportTimezone    string `mapstructure:"report-timezone"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("manifest-url", `\\fileserver\Validation-Tool\latest.json`)
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("app-dir", defaultAppDir())
	viper.SetDefault("app-exe", "validation-ui.exe")
	viper.SetDefault("tools-exe", "pbi-tools.exe")
	viper.SetDefault("fetch-timeout", 5*time.Second)
	viper.SetDefault("probe-timeout", 2*time.Second)
	viper.SetDefault("shutdown-timeout", 3*time.Second)
	viper.SetDefault("poll-interval", 500*time.Millisecond)
	viper.SetDefault("graceful-polls", 10)
	viper.SetDefault("kill-polls", 10)
	viper.SetDefault("fsm-max-retries", 3)
	viper.SetDefault("telemetry-dir", `\\fileserver\Validation-Tool\logs`)
	viper.SetDefault("telemetry-glob", "telemetry*.jsonl")
	viper.SetDefault("telemetry-max-lines", 20000)
	viper.SetDefault("report-timezone", "America/Chicago")

	// Environment variables (VALIDATION_MANIFEST_URL, etc.)
	viper.SetEnvPrefix("VALIDATION")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.validation-tool")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.ManifestURL == "" {
		return fmt.Errorf("manifest-url cannot be empty")
	}
	if c.AppDir == "" {
		return fmt.Errorf("app-dir cannot be empty")
	}
	if c.AppExe == "" {
		return fmt.Errorf("app-exe cannot be empty")
	}
	if c.FetchTimeout <= 0 || c.ProbeTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	if c.GracefulPolls <= 0 || c.KillPolls <= 0 {
		return fmt.Errorf("poll bounds must be positive")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	return nil
}

// StateDir returns the directory holding the launcher's own bookkeeping (the
// FSM database and the install journal), inside the install directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.AppDir, ".state")
}

// JournalPath returns the install journal database path.
func (c *Config) JournalPath() string {
	return filepath.Join(c.StateDir(), "journal.db")
}

// FSMDBPath returns the pipeline state database directory.
func (c *Config) FSMDBPath() string {
	return filepath.Join(c.StateDir(), "fsm")
}

// defaultAppDir resolves the per-user install directory the way the
// application has always done: LOCALAPPDATA, then APPDATA, then the home
// directory.
func defaultAppDir() string {
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		base = os.Getenv("APPDATA")
	}
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = home
		} else {
			base = "."
		}
	}
	return filepath.Join(base, appDirName)
}

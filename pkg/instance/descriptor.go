// Package instance coordinates with an already-running application instance:
// liveness probing, graceful shutdown, and (as a last resort) guarded
// forced termination.
package instance

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// descriptorName is the file the managed application writes next to its
// binary while it runs.
const descriptorName = "runtime.json"

// Descriptor describes a believed-running instance. It is written by the
// application and read-only here, and it may be stale: the process can exit
// without cleaning it up, so nothing trusts it without a live probe.
type Descriptor struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"token"`
	PID   int    `json:"pid"`
}

// ReadDescriptor reads the runtime descriptor from the install directory.
// A missing or malformed file yields nil, meaning "no known instance".
func ReadDescriptor(installDir string) *Descriptor {
	path := filepath.Join(installDir, descriptorName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		slog.Warn("runtime_descriptor_malformed", "path", path, "error", err)
		return nil
	}
	if d.Port <= 0 {
		slog.Warn("runtime_descriptor_invalid_port", "path", path, "port", d.Port)
		return nil
	}
	if d.Host == "" {
		d.Host = "127.0.0.1"
	}
	return &d
}

// BaseURL returns the instance's control endpoint base.
func (d *Descriptor) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.Host, d.Port)
}

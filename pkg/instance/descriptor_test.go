package instance

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDescriptor(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "runtime.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write descriptor: %v", err)
	}
}

func TestReadDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantNil  bool
		wantHost string
		wantPort int
	}{
		{
			name:     "complete descriptor",
			content:  `{"host": "127.0.0.1", "port": 8812, "token": "secret", "pid": 4242}`,
			wantHost: "127.0.0.1",
			wantPort: 8812,
		},
		{
			name:     "host defaults to loopback",
			content:  `{"port": 8812, "token": "secret", "pid": 4242}`,
			wantHost: "127.0.0.1",
			wantPort: 8812,
		},
		{
			name:    "malformed json",
			content: `{port:`,
			wantNil: true,
		},
		{
			name:    "missing port",
			content: `{"token": "secret", "pid": 4242}`,
			wantNil: true,
		},
		{
			name:    "negative port",
			content: `{"port": -1}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeDescriptor(t, dir, tt.content)

			d := ReadDescriptor(dir)
			if tt.wantNil {
				if d != nil {
					t.Fatalf("expected nil descriptor, got %+v", d)
				}
				return
			}
			if d == nil {
				t.Fatal("expected descriptor, got nil")
			}
			if d.Host != tt.wantHost || d.Port != tt.wantPort {
				t.Errorf("descriptor = %s:%d, want %s:%d", d.Host, d.Port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestReadDescriptor_MissingFile(t *testing.T) {
	if d := ReadDescriptor(t.TempDir()); d != nil {
		t.Errorf("expected nil for missing descriptor, got %+v", d)
	}
}

func TestDescriptor_BaseURL(t *testing.T) {
	d := &Descriptor{Host: "127.0.0.1", Port: 8812}
	if got := d.BaseURL(); got != "http://127.0.0.1:8812" {
		t.Errorf("BaseURL() = %q", got)
	}
}

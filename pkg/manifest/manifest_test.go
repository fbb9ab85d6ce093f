package manifest

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeSource struct {
	data []byte
	err  error
}

func (f *fakeSource) ReadAll(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	return f.data, f.err
}

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		err         error
		wantNil     bool
		wantVersion string
	}{
		{
			name:        "valid manifest",
			data:        `{"version": "1.4.0", "url": "https://dist/app.exe", "sha256": "abc"}`,
			wantVersion: "1.4.0",
		},
		{
			name:        "whitespace trimmed",
			data:        `{"version": " 1.4.0 ", "url": " https://dist/app.exe "}`,
			wantVersion: "1.4.0",
		},
		{
			name:    "fetch error yields nil",
			err:     fmt.Errorf("unreachable"),
			wantNil: true,
		},
		{
			name:    "malformed json yields nil",
			data:    `{not json`,
			wantNil: true,
		},
		{
			name:        "unknown fields ignored",
			data:        `{"version": "2.0", "url": "u", "future_field": true}`,
			wantVersion: "2.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(&fakeSource{data: []byte(tt.data), err: tt.err}, "https://dist/latest.json", time.Second)
			m := f.Fetch(context.Background())

			if tt.wantNil {
				if m != nil {
					t.Fatalf("expected nil manifest, got %+v", m)
				}
				return
			}
			if m == nil {
				t.Fatal("expected manifest, got nil")
			}
			if m.Version != tt.wantVersion {
				t.Errorf("version = %q, want %q", m.Version, tt.wantVersion)
			}
		})
	}
}

func TestManifest_HasUpdateInfo(t *testing.T) {
	tests := []struct {
		name string
		m    *Manifest
		want bool
	}{
		{"nil", nil, false},
		{"complete", &Manifest{Version: "1.0", URL: "u"}, true},
		{"missing version", &Manifest{URL: "u"}, false},
		{"missing url", &Manifest{Version: "1.0"}, false},
	}

	for _, tt := range tests {
		if got := tt.m.HasUpdateInfo(); got != tt.want {
			t.Errorf("%s: HasUpdateInfo() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestManifest_HasLauncherInfo(t *testing.T) {
	tests := []struct {
		name string
		m    *Manifest
		want bool
	}{
		{"nil", nil, false},
		{"complete", &Manifest{LauncherURL: "u", LauncherSHA256: "h"}, true},
		{"url without hash", &Manifest{LauncherURL: "u"}, false},
		{"hash without url", &Manifest{LauncherSHA256: "h"}, false},
	}

	for _, tt := range tests {
		if got := tt.m.HasLauncherInfo(); got != tt.want {
			t.Errorf("%s: HasLauncherInfo() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// Package manifest reads the remote descriptor of currently-available
// artifact versions and locations.
package manifest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// maxManifestBytes bounds the manifest read; latest.json is a few hundred
// bytes in practice.
const maxManifestBytes = 64 * 1024

// Manifest is an immutable snapshot of the distribution descriptor, fetched
// fresh on every run. Unknown fields are ignored; every field besides Version
// and URL is optional and independently absent-tolerant.
type Manifest struct {
	Version        string `json:"version"`
	URL            string `json:"url"`
	SHA256         string `json:"sha256"`
	PBIToolsURL    string `json:"pbi_tools_url"`
	PBIToolsSHA256 string `json:"pbi_tools_sha256"`
	LauncherURL    string `json:"launcher_url"`
	LauncherSHA256 string `json:"launcher_sha256"`
}

// HasUpdateInfo reports whether the manifest carries enough information to
// decide application update availability.
func (m *Manifest) HasUpdateInfo() bool {
	return m != nil && m.Version != "" && m.URL != ""
}

// HasLauncherInfo reports whether the launcher self-update path is enabled.
// Both the URL and the expected hash must be present; absence of either
// disables self-update entirely.
func (m *Manifest) HasLauncherInfo() bool {
	return m != nil && m.LauncherURL != "" && m.LauncherSHA256 != ""
}

// Source reads a small resource from the distribution channel.
type Source interface {
	ReadAll(ctx context.Context, rawURL string, limit int64) ([]byte, error)
}

// Fetcher retrieves the manifest from its fixed pre-configured location.
type Fetcher struct {
	src     Source
	url     string
	timeout time.Duration
}

// NewFetcher creates a manifest fetcher for the given location.
func NewFetcher(src Source, url string, timeout time.Duration) *Fetcher {
	return &Fetcher{src: src, url: url, timeout: timeout}
}

// Fetch retrieves and parses the manifest. Any failure yields nil: manifest
// absence means "cannot determine update availability", not a fatal error.
// The fetch is not retried within a run; the next launch fetches again.
func (f *Fetcher) Fetch(ctx context.Context) *Manifest {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	raw, err := f.src.ReadAll(ctx, f.url, maxManifestBytes)
	if err != nil {
		slog.Warn("manifest_fetch_failed", "url", f.url, "error", err)
		return nil
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		slog.Warn("manifest_parse_failed", "url", f.url, "error", err)
		return nil
	}

	m.Version = strings.TrimSpace(m.Version)
	m.URL = strings.TrimSpace(m.URL)
	m.SHA256 = strings.TrimSpace(m.SHA256)
	m.PBIToolsURL = strings.TrimSpace(m.PBIToolsURL)
	m.PBIToolsSHA256 = strings.TrimSpace(m.PBIToolsSHA256)
	m.LauncherURL = strings.TrimSpace(m.LauncherURL)
	m.LauncherSHA256 = strings.TrimSpace(m.LauncherSHA256)

	slog.Info("manifest_fetched", "url", f.url, "version", m.Version,
		"has_update_info", m.HasUpdateInfo(), "has_launcher_info", m.HasLauncherInfo())
	return &m
}

package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetch_HTTP(t *testing.T) {
	content := []byte("application binary bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	c := NewClient("", 5*time.Second)
	dest := filepath.Join(t.TempDir(), "app.exe")

	res, err := c.Fetch(context.Background(), server.URL+"/app.exe", dest)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	sum := sha256.Sum256(content)
	if res.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("sha256 = %s, want %s", res.SHA256, hex.EncodeToString(sum[:]))
	}
	if res.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", res.Size, len(content))
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("downloaded file unreadable: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("downloaded content mismatch")
	}
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient("", 5*time.Second)
	dest := filepath.Join(t.TempDir(), "app.exe")

	if _, err := c.Fetch(context.Background(), server.URL+"/missing.exe", dest); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination file left behind after failed fetch")
	}
}

func TestFetch_LocalPath(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "share-app.exe")
	content := []byte("shared binary")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	c := NewClient("", 5*time.Second)
	dest := filepath.Join(dir, "local-app.exe")

	res, err := c.Fetch(context.Background(), srcPath, dest)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	sum := sha256.Sum256(content)
	if res.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("sha256 mismatch for local fetch")
	}
}

func TestFetch_LocalPathMissing(t *testing.T) {
	c := NewClient("", 5*time.Second)
	dest := filepath.Join(t.TempDir(), "app.exe")

	if _, err := c.Fetch(context.Background(), "/nonexistent/share/app.exe", dest); err == nil {
		t.Fatal("expected error for missing source path")
	}
}

func TestReadAll_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1024))
	}))
	defer server.Close()

	c := NewClient("", 5*time.Second)
	data, err := c.ReadAll(context.Background(), server.URL, 100)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) != 100 {
		t.Errorf("read %d bytes, want limit of 100", len(data))
	}
}

func TestReadAll_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.json")
	manifest := []byte(`{"version": "1.0"}`)
	if err := os.WriteFile(path, manifest, 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	c := NewClient("", 5*time.Second)
	data, err := c.ReadAll(context.Background(), path, 64*1024)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != string(manifest) {
		t.Errorf("content = %q, want %q", data, manifest)
	}
}

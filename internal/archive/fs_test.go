package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFSSaveWritesBody(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}
	fs.now = func() time.Time { return time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC) }

	uri, err := fs.Save(context.Background(), "https://www.amazon.com/dp/B00X", []byte("<html>body</html>"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(uri, "file://") {
		t.Errorf("uri = %q, want file:// prefix", uri)
	}

	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archived file: %v", err)
	}
	if string(data) != "<html>body</html>" {
		t.Errorf("archived body = %q", data)
	}
	if !strings.Contains(path, filepath.Join("www.amazon.com", "2026", "08", "24")) {
		t.Errorf("path = %q, want host/date layout", path)
	}
}

func TestNewFSCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "archive")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory to exist, err = %v", err)
	}
}

func TestNewFSRejectsEmptyAndFilePaths(t *testing.T) {
	t.Parallel()

	if _, err := NewFS("  "); err == nil {
		t.Error("NewFS(blank) = nil error, want error")
	}

	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := NewFS(file); err == nil {
		t.Error("NewFS(regular file) = nil error, want error")
	}
}

func TestObjectPathSanitizesHost(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	path := objectPath("https://shop.example.com:8443/item", at)
	if !strings.HasPrefix(path, "shop.example.com_8443/2026/08/24/") {
		t.Errorf("path = %q, want sanitized host prefix", path)
	}
	if !strings.HasSuffix(path, ".html") {
		t.Errorf("path = %q, want .html suffix", path)
	}

	if got := objectPath("not a url", at); !strings.HasPrefix(got, "unknown/") {
		t.Errorf("path = %q, want unknown host bucket", got)
	}
}

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FS archives page bodies under a base directory on the local filesystem.
type FS struct {
	baseDir string
	now     func() time.Time
}

// NewFS validates the base directory and returns a filesystem archiver.
func NewFS(baseDir string) (*FS, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("archive base directory is required")
	}
	info, err := os.Stat(baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create archive directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat archive directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("archive path %q is not a directory", baseDir)
	}
	return &FS{baseDir: baseDir, now: time.Now}, nil
}

// Save implements tracker.Archiver. It returns a file:// URI for the
// written body.
func (f *FS) Save(_ context.Context, sourceURL string, body []byte) (string, error) {
	rel := objectPath(sourceURL, f.now())
	fullPath := filepath.Join(f.baseDir, filepath.FromSlash(rel))

	cleanBase := filepath.Clean(f.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("archive path escapes base directory")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(fullPath, body, 0o600); err != nil {
		return "", fmt.Errorf("write archived body: %w", err)
	}
	return "file://" + fullPath, nil
}

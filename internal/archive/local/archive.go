// Package local implements a local filesystem announcement archive.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uwasa-watch/uwasa/internal/archive"
	"github.com/uwasa-watch/uwasa/internal/feed"
)

// Config captures the parameters for the filesystem archive.
type Config struct {
	// BaseDir is the root directory where artifacts are stored.
	BaseDir string `mapstructure:"base_dir"`
}

// Archive writes announcement artifacts to the local filesystem.
type Archive struct {
	baseDir string
}

var _ feed.Archive = (*Archive)(nil)

// New creates a filesystem-backed archive, verifying the base directory
// exists and is writable so a misconfigured path fails at startup
// instead of mid-run.
func New(cfg Config) (*Archive, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up write probe: %w", err)
	}

	return &Archive{baseDir: cfg.BaseDir}, nil
}

// Put writes one artifact. Re-archiving an id overwrites the file with
// identical content, so repeats are harmless.
func (a *Archive) Put(_ context.Context, id int64, data []byte) error {
	fullPath := filepath.Join(a.baseDir, archive.ObjectName(id))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

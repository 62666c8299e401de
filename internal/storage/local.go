package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DiskStore keeps attachment files on the local filesystem under a single
// root directory. Stored filenames are generated upstream with enough entropy
// that collisions are not expected; Save still refuses to overwrite.
type DiskStore struct {
	root string
	log  *slog.Logger
}

// NewDiskStore creates the root directory if missing.
func NewDiskStore(root string, log *slog.Logger) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &DiskStore{root: root, log: log}, nil
}

var _ FileStore = (*DiskStore)(nil)

func (d *DiskStore) Save(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	path := filepath.Join(d.root, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func (d *DiskStore) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (d *DiskStore) Remove(_ context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		d.log.Warn("could not remove file", "path", path, "error", err)
	}
}

func (d *DiskStore) RemoveStrict(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

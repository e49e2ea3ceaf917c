package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalTier is the last-resort tier writing to the host filesystem.
type LocalTier struct {
	name string
	root string
}

// NewLocalTier creates a disk-backed tier rooted at dir.
func NewLocalTier(name, dir string) *LocalTier {
	return &LocalTier{name: name, root: dir}
}

// Name identifies the tier.
func (t *LocalTier) Name() string { return t.name }

func (t *LocalTier) fullPath(path string) (string, error) {
	cleaned := filepath.Clean("/" + path)
	if strings.Contains(cleaned, "..") {
		return "", errors.New("invalid storage path")
	}
	return filepath.Join(t.root, cleaned), nil
}

// Put writes the file, creating parent directories as needed.
func (t *LocalTier) Put(ctx context.Context, path string, data []byte, contentType string) error {
	full, err := t.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// Get reads the file back; missing or empty files map to not-found.
func (t *LocalTier) Get(ctx context.Context, path string) ([]byte, error) {
	full, err := t.fullPath(path)
	if err != nil {
		return nil, NewNotFound(path)
	}
	data, err := os.ReadFile(full)
	if err != nil || len(data) == 0 {
		return nil, NewNotFound(path)
	}
	return data, nil
}

// Delete removes the file; a missing file is not an error.
func (t *LocalTier) Delete(ctx context.Context, path string) error {
	full, err := t.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

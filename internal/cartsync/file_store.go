package cartsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the local cart as a JSON array on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns nil lines when the file does not exist.
func (s *FileStore) Load(_ context.Context) ([]Line, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local cart: %w", err)
	}
	return decodeLines(data)
}

// Save replaces the file atomically.
func (s *FileStore) Save(_ context.Context, lines []Line) error {
	payload, err := encodeLines(lines)
	if err != nil {
		return fmt.Errorf("encode local cart: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cart dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("create temp cart file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cart file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace cart file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove local cart: %w", err)
	}
	return nil
}

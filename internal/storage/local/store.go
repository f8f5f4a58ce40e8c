// Package local keeps objects as files under a root directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/salesquery/salesquery/internal/storage"
)

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("local object store directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object store directory: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) path(key string) (string, error) {
	normalized, err := storage.NormalizeKey("", key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(normalized)), nil
}

// Put writes through a temporary file and renames it into place so readers
// never observe a partial object.
func (s *Store) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	target, err := s.path(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create temp object: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return storage.ObjectInfo{}, fmt.Errorf("write object %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("close object %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("publish object %q: %w", key, err)
	}
	return s.Stat(context.Background(), key)
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return file, nil
}

func (s *Store) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	target, err := s.path(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ObjectInfo{}, storage.ErrObjectNotFound
		}
		return storage.ObjectInfo{}, fmt.Errorf("stat object %q: %w", key, err)
	}
	if info.IsDir() {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime().UTC()}, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

func (s *Store) HealthCheck(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat object store directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("object store root %q is not a directory", s.root)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// LocalStorage keeps documents under a directory on disk and serves them
// from baseURL, e.g. LOCAL_STORAGE_PATH=./data/invoices under /files.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", root, err)
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

// file maps a slash-separated key to a path inside root. Keys that would
// escape root are rejected.
func (s *LocalStorage) file(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, rel), nil
}

// Put writes through a temp file in the target directory and renames it
// into place, so a reader never sees half a PDF.
func (s *LocalStorage) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	dst, err := s.file(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	_, copyErr := io.Copy(tmp, content)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	src, err := s.file(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, notFound(key)
	case err != nil:
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return f, nil
}

// Delete is idempotent.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	target, err := s.file(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return path.Join(s.baseURL, key)
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	target, err := s.file(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return true, nil
}

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"edgarfeed/internal/services"
)

// FS stores blobs as files below a root directory. Content types are not
// recorded.
type FS struct {
	root string
}

// NewFS creates the root directory if needed.
func NewFS(dir, prefix string) (*FS, error) {
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "blobstore", "open", "blob.dir is empty", nil)
	}
	root := dir
	if prefix != "" {
		root = filepath.Join(dir, filepath.FromSlash(prefix))
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func (s *FS) ReadText(ctx context.Context, key string) (string, error) {
	return readAll(ctx, s, key)
}

func (s *FS) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "blobstore", "open", key, err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "blobstore", "open", key, err)
	}
	return f, nil
}

// Write replaces the blob atomically through a temp file and rename.
func (s *FS) Write(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return services.Wrap(services.ErrTransport, "blobstore", "write", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".blob-*")
	if err != nil {
		return services.Wrap(services.ErrTransport, "blobstore", "write", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return services.Wrap(services.ErrTransport, "blobstore", "write", key, err)
	}
	if err := tmp.Close(); err != nil {
		return services.Wrap(services.ErrTransport, "blobstore", "write", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return services.Wrap(services.ErrTransport, "blobstore", "write", key, err)
	}
	return nil
}

package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"edgarfeed/internal/config"
	"edgarfeed/internal/services"
	"edgarfeed/internal/textutil"
)

// Store is the blob-store surface consumed by ingestion and reconstruction.
type Store interface {
	ReadText(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// Open builds the configured backend. The none backend returns a nil Store.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Blob.Backend {
	case config.BlobBackendNone, "":
		return nil, nil
	case config.BlobBackendFS:
		store, err = NewFS(cfg.Blob.Dir, cfg.Blob.Prefix)
	case config.BlobBackendS3:
		store, err = NewS3(ctx, cfg.Blob)
	case config.BlobBackendGCS:
		store, err = NewGCS(ctx, cfg.Blob)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "blobstore", "open",
			fmt.Sprintf("unsupported backend %q", cfg.Blob.Backend), nil)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// DocumentKey is the key of one extracted document.
func DocumentKey(accession, filename string) string {
	return path.Join("documents", accession, textutil.SanitizeFileName(filename))
}

// DisseminationKey is the key of a rebuilt dissemination file.
func DisseminationKey(accession string) string {
	return path.Join("dissemination", accession+".nc")
}

// readAll is the shared ReadText implementation over Open.
func readAll(ctx context.Context, s Store, key string) (string, error) {
	r, err := s.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "blobstore", "read", key, err)
	}
	return string(data), nil
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", services.Wrap(services.ErrConfiguration, "blobstore", "key", fmt.Sprintf("invalid key %q", key), nil)
	}
	return cleaned, nil
}

func withPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

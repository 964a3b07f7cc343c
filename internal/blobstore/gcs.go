package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"edgarfeed/internal/config"
	"edgarfeed/internal/services"
)

// GCS stores blobs in a Google Cloud Storage bucket.
type GCS struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS builds a client from application default credentials. A configured
// endpoint (for an emulator) replaces the public API endpoint.
func NewGCS(ctx context.Context, cfg config.Blob) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "blobstore", "gcs client", cfg.Bucket, err)
	}
	return &GCS{bucket: client.Bucket(cfg.Bucket), name: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCS) object(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return withPrefix(s.prefix, cleaned), nil
}

func (s *GCS) ReadText(ctx context.Context, key string) (string, error) {
	return readAll(ctx, s, key)
}

func (s *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	name, err := s.object(key)
	if err != nil {
		return nil, err
	}
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || isGoogleStatus(err, http.StatusNotFound) {
			return nil, services.Wrap(services.ErrNotFound, "blobstore", "gcs read", name, err)
		}
		return nil, services.Wrap(services.ErrTransport, "blobstore", "gcs read", name, err)
	}
	return r, nil
}

func (s *GCS) Write(ctx context.Context, key string, data []byte, contentType string) error {
	name, err := s.object(key)
	if err != nil {
		return err
	}
	w := s.bucket.Object(name).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	location := fmt.Sprintf("gs://%s/%s", s.name, name)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return services.Wrap(services.ErrTransport, "blobstore", "gcs write", location, err)
	}
	if err := w.Close(); err != nil {
		return services.Wrap(services.ErrTransport, "blobstore", "gcs finalize", location, err)
	}
	return nil
}

func isGoogleStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

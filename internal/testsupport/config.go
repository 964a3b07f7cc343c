package testsupport

import (
	"path/filepath"
	"testing"

	"edgarfeed/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Downloads point at an unroutable host, the blob store is a local directory
// and workers run in-process.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.FeedsDir = filepath.Join(base, "feeds")
	cfgVal.Paths.FilingsDir = filepath.Join(base, "filings")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Blob.Backend = config.BlobBackendFS
	cfgVal.Blob.Dir = filepath.Join(base, "blobs")
	cfgVal.Store.Driver = config.StoreDriverSQLite
	cfgVal.Store.Path = ""
	cfgVal.Archive.BaseURL = "http://127.0.0.1:0/Archives/edgar/Feed"
	cfgVal.Archive.UserAgent = "edgarfeed-test test@example.com"
	cfgVal.Workers.InProcess = true
	cfgVal.Metrics.Bind = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithArchiveBaseURL points downloads at a test server.
func WithArchiveBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.BaseURL = url
	}
}

// WithWorkers sets the worker count and submission timeout in seconds.
func WithWorkers(count, timeoutSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Count = count
		b.cfg.Workers.SubmissionTimeout = timeoutSeconds
	}
}

// WithDownloads sets the download pool size and retry cap, disables the
// fair-use interval and shortens the scheduler tick for fast tests.
func WithDownloads(slots, maxRetries int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.DownloadSlots = slots
		b.cfg.Archive.MaxRetries = maxRetries
		b.cfg.Archive.MinRequestIntervalMS = 0
		b.cfg.Archive.SchedulerTickInterval = 5
		b.cfg.Workers.TickIntervalMS = 5
	}
}

// WithOutput toggles the optional per-submission files.
func WithOutput(writeJSON, extractFiles bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.WriteJSON = writeJSON
		b.cfg.Output.ExtractFiles = extractFiles
	}
}

// WithoutBlobs disables the blob store and document uploads.
func WithoutBlobs() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Blob.Backend = config.BlobBackendNone
		b.cfg.Output.UploadDocuments = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

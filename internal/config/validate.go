package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateBlob(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.FeedsDir == "" {
		return errors.New("paths.feeds_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Output.WriteJSON || c.Output.ExtractFiles {
		if c.Paths.FilingsDir == "" {
			return errors.New("paths.filings_dir must be set when output.write_json or output.extract_files is true")
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	parsed, err := url.Parse(c.Archive.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("archive.base_url %q must be an absolute URL", c.Archive.BaseURL)
	}
	if err := ensurePositiveMap(map[string]int{
		"archive.download_timeout":           c.Archive.DownloadTimeout,
		"archive.download_slots":             c.Archive.DownloadSlots,
		"archive.scheduler_tick_interval_ms": c.Archive.SchedulerTickInterval,
	}); err != nil {
		return err
	}
	if c.Archive.MinRequestIntervalMS < 0 {
		return errors.New("archive.min_request_interval_ms must be >= 0")
	}
	if c.Archive.MaxRetries < 0 {
		return errors.New("archive.max_retries must be >= 0")
	}
	if c.Archive.MaxErrorRatio < 0 || c.Archive.MaxErrorRatio > 1 {
		return errors.New("archive.max_error_ratio must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	return ensurePositiveMap(map[string]int{
		"workers.count":              c.Workers.Count,
		"workers.submission_timeout": c.Workers.SubmissionTimeout,
		"workers.heartbeat_interval": c.Workers.HeartbeatInterval,
		"workers.tick_interval_ms":   c.Workers.TickIntervalMS,
	})
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
	case StoreDriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set for the postgres driver (or set EDGARFEED_STORE_DSN)")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported (use %q or %q)", c.Store.Driver, StoreDriverSQLite, StoreDriverPostgres)
	}
	if c.Store.MaxConns <= 0 {
		return errors.New("store.max_conns must be positive")
	}
	return nil
}

func (c *Config) validateBlob() error {
	switch c.Blob.Backend {
	case BlobBackendNone:
		if c.Output.UploadDocuments {
			return errors.New("output.upload_documents requires a blob.backend other than \"none\"")
		}
	case BlobBackendFS:
		if c.Blob.Dir == "" {
			return errors.New("blob.dir must be set for the fs backend")
		}
	case BlobBackendS3, BlobBackendGCS:
		if c.Blob.Bucket == "" {
			return fmt.Errorf("blob.bucket must be set for the %s backend", c.Blob.Backend)
		}
	default:
		return fmt.Errorf("blob.backend %q is not supported", c.Blob.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	for component, level := range c.Logging.ComponentOverrides {
		if !validLevel(level) {
			return fmt.Errorf("logging.component_overrides.%s: unknown level %q", component, level)
		}
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func validLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

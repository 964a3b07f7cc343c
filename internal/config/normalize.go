package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeArchive()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeBlob(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.FeedsDir, err = expandPath(c.Paths.FeedsDir); err != nil {
		return fmt.Errorf("paths.feeds_dir: %w", err)
	}
	if c.Paths.FilingsDir, err = expandPath(c.Paths.FilingsDir); err != nil {
		return fmt.Errorf("paths.filings_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchive() {
	c.Archive.BaseURL = strings.TrimRight(strings.TrimSpace(c.Archive.BaseURL), "/")
	if c.Archive.BaseURL == "" {
		c.Archive.BaseURL = defaultArchiveBaseURL
	}
	c.Archive.Host = strings.TrimSpace(c.Archive.Host)
	c.Archive.UserAgent = strings.TrimSpace(c.Archive.UserAgent)
	if value, ok := os.LookupEnv("EDGARFEED_USER_AGENT"); ok && strings.TrimSpace(value) != "" {
		c.Archive.UserAgent = strings.TrimSpace(value)
	}
	if c.Archive.UserAgent == "" {
		c.Archive.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverSQLite
	}
	if c.Store.Driver == "postgresql" || c.Store.Driver == "pgx" {
		c.Store.Driver = StoreDriverPostgres
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("EDGARFEED_STORE_DSN"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	if c.Store.Path != "" {
		var err error
		if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
			return fmt.Errorf("store.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeBlob() error {
	c.Blob.Backend = strings.ToLower(strings.TrimSpace(c.Blob.Backend))
	if c.Blob.Backend == "" {
		c.Blob.Backend = BlobBackendNone
	}
	c.Blob.Bucket = strings.TrimSpace(c.Blob.Bucket)
	c.Blob.Prefix = strings.Trim(strings.TrimSpace(c.Blob.Prefix), "/")
	c.Blob.Endpoint = strings.TrimSpace(c.Blob.Endpoint)
	c.Blob.Region = strings.TrimSpace(c.Blob.Region)
	c.Blob.AccessKeyID = strings.TrimSpace(os.Getenv("EDGARFEED_S3_ACCESS_KEY_ID"))
	c.Blob.SecretAccessKey = strings.TrimSpace(os.Getenv("EDGARFEED_S3_SECRET_ACCESS_KEY"))
	if c.Blob.Dir != "" {
		var err error
		if c.Blob.Dir, err = expandPath(c.Blob.Dir); err != nil {
			return fmt.Errorf("blob.dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		normalized := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			component = strings.ToLower(strings.TrimSpace(component))
			if component == "" {
				continue
			}
			normalized[component] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentOverrides = normalized
	}
}

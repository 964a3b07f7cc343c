package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	FeedsDir   string `toml:"feeds_dir"`
	FilingsDir string `toml:"filings_dir"`
	StateDir   string `toml:"state_dir"`
}

// Archive contains configuration for the daily feed archive source.
type Archive struct {
	BaseURL               string  `toml:"base_url"`
	Host                  string  `toml:"host"`
	UserAgent             string  `toml:"user_agent"`
	MinRequestIntervalMS  int     `toml:"min_request_interval_ms"`
	DownloadTimeout       int     `toml:"download_timeout"`
	DownloadSlots         int     `toml:"download_slots"`
	MaxRetries            int     `toml:"max_retries"`
	MaxErrorRatio         float64 `toml:"max_error_ratio"`
	SchedulerTickInterval int     `toml:"scheduler_tick_interval_ms"`
}

// Workers contains configuration for the per-day parse worker pool.
type Workers struct {
	Count             int  `toml:"count"`
	SubmissionTimeout int  `toml:"submission_timeout"`
	HeartbeatInterval int  `toml:"heartbeat_interval"`
	TickIntervalMS    int  `toml:"tick_interval_ms"`
	InProcess         bool `toml:"in_process"`
}

// Store contains configuration for the structured store.
type Store struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Path     string `toml:"path"`
	MaxConns int    `toml:"max_conns"`
}

// Blob contains configuration for the blob store.
type Blob struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	PathStyle bool   `toml:"path_style"`

	// Static S3 credentials, read from EDGARFEED_S3_ACCESS_KEY_ID and
	// EDGARFEED_S3_SECRET_ACCESS_KEY. When unset the AWS default chain is used.
	AccessKeyID     string `toml:"-"`
	SecretAccessKey string `toml:"-"`
}

// Output controls the side effects of indexing one submission.
type Output struct {
	WriteJSON       bool `toml:"write_json"`
	ExtractFiles    bool `toml:"extract_files"`
	Persist         bool `toml:"persist"`
	UploadDocuments bool `toml:"upload_documents"`
	KeepArchives    bool `toml:"keep_archives"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Metrics contains configuration for the Prometheus endpoint.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for edgarfeed.
//
// Configuration sections by subsystem:
//   - Paths: feed archives, per-filing output and run state
//   - Archive: feed source, fair-use interval, download pool and retries
//   - Workers: parse worker pool size and submission timeout
//   - Store: structured store driver and connection
//   - Blob: blob store backend for documents and dissemination output
//   - Output: per-submission side effects
//   - Logging: log format, level, and retention
//   - Metrics: Prometheus listener
type Config struct {
	Paths   Paths   `toml:"paths"`
	Archive Archive `toml:"archive"`
	Workers Workers `toml:"workers"`
	Store   Store   `toml:"store"`
	Blob    Blob    `toml:"blob"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/edgarfeed/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("edgarfeed.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.FeedsDir, c.Paths.FilingsDir, c.Paths.StateDir, c.LogDir()}
	if c.Blob.Backend == BlobBackendFS {
		dirs = append(dirs, c.Blob.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogDir returns the directory run logs are written to.
func (c *Config) LogDir() string {
	if c.Paths.StateDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "logs")
}

// LockPath returns the run lock file guarding the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "edgarfeed.lock")
}

// SQLitePath returns the database file used by the sqlite store driver.
func (c *Config) SQLitePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.Paths.StateDir, "edgarfeed.db")
}

// MinRequestInterval returns the fair-use gap between archive requests.
func (c *Config) MinRequestInterval() time.Duration {
	return time.Duration(c.Archive.MinRequestIntervalMS) * time.Millisecond
}

// DownloadTimeout returns the per-archive download and unpack budget.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Archive.DownloadTimeout) * time.Second
}

// SchedulerTick returns the download scheduler tick.
func (c *Config) SchedulerTick() time.Duration {
	return time.Duration(c.Archive.SchedulerTickInterval) * time.Millisecond
}

// SubmissionTimeout returns how long a worker may spend on one file.
func (c *Config) SubmissionTimeout() time.Duration {
	return time.Duration(c.Workers.SubmissionTimeout) * time.Second
}

// HeartbeatInterval returns how often a busy child worker reports liveness.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workers.HeartbeatInterval) * time.Second
}

// WorkerTick returns the dispatcher scheduling tick.
func (c *Config) WorkerTick() time.Duration {
	return time.Duration(c.Workers.TickIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

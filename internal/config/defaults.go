package config

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// Blob backends.
const (
	BlobBackendNone = "none"
	BlobBackendFS   = "fs"
	BlobBackendS3   = "s3"
	BlobBackendGCS  = "gcs"
)

const (
	defaultFeedsDir           = "~/.local/share/edgarfeed/feeds"
	defaultFilingsDir         = "~/.local/share/edgarfeed/filings"
	defaultStateDir           = "~/.local/share/edgarfeed/state"
	defaultBlobDir            = "~/.local/share/edgarfeed/blobs"
	defaultArchiveBaseURL     = "https://www.sec.gov/Archives/edgar/Feed"
	defaultArchiveHost        = "www.sec.gov"
	defaultUserAgent          = "edgarfeed/dev admin@example.com"
	defaultMinRequestInterval = 1000
	defaultDownloadTimeout    = 1800
	defaultDownloadSlots      = 2
	defaultMaxRetries         = 3
	defaultMaxErrorRatio      = 0.05
	defaultSchedulerTick      = 500
	defaultWorkerCount        = 5
	defaultSubmissionTimeout  = 120
	defaultHeartbeatInterval  = 5
	defaultWorkerTick         = 100
	defaultStoreMaxConns      = 8
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			FeedsDir:   defaultFeedsDir,
			FilingsDir: defaultFilingsDir,
			StateDir:   defaultStateDir,
		},
		Archive: Archive{
			BaseURL:               defaultArchiveBaseURL,
			Host:                  defaultArchiveHost,
			UserAgent:             defaultUserAgent,
			MinRequestIntervalMS:  defaultMinRequestInterval,
			DownloadTimeout:       defaultDownloadTimeout,
			DownloadSlots:         defaultDownloadSlots,
			MaxRetries:            defaultMaxRetries,
			MaxErrorRatio:         defaultMaxErrorRatio,
			SchedulerTickInterval: defaultSchedulerTick,
		},
		Workers: Workers{
			Count:             defaultWorkerCount,
			SubmissionTimeout: defaultSubmissionTimeout,
			HeartbeatInterval: defaultHeartbeatInterval,
			TickIntervalMS:    defaultWorkerTick,
		},
		Store: Store{
			Driver:   StoreDriverSQLite,
			MaxConns: defaultStoreMaxConns,
		},
		Blob: Blob{
			Backend: BlobBackendFS,
			Dir:     defaultBlobDir,
		},
		Output: Output{
			WriteJSON:       false,
			ExtractFiles:    false,
			Persist:         true,
			UploadDocuments: true,
			KeepArchives:    true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

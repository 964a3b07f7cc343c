package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"edgarfeed/internal/blobstore"
	"edgarfeed/internal/config"
	"edgarfeed/internal/dispatch"
	"edgarfeed/internal/ingest"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/metrics"
	"edgarfeed/internal/store"
	"edgarfeed/internal/throttle"
	"edgarfeed/internal/worker"
)

// Runtime is the process-wide context shared by every component of a run.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   store.Store
	Blobs   blobstore.Store
	Gate    *throttle.Gate
	Metrics *metrics.Metrics
	RunID   string

	// ConfigPath is handed to child workers so they load the same file.
	ConfigPath string

	db *store.DB
}

// RuntimeOption customizes NewRuntime.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	forceStore bool
	forceBlobs bool
	runID      string
}

// WithStore opens the structured store even when output.persist is off.
func WithStore() RuntimeOption {
	return func(o *runtimeOptions) { o.forceStore = true }
}

// WithBlobs opens the blob store even when output.upload_documents is off.
func WithBlobs() RuntimeOption {
	return func(o *runtimeOptions) { o.forceBlobs = true }
}

// WithRunID reuses a correlation id, typically the parent's in a worker.
func WithRunID(id string) RuntimeOption {
	return func(o *runtimeOptions) { o.runID = id }
}

// NewRuntime opens the collaborators cfg enables.
func NewRuntime(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger, opts ...RuntimeOption) (*Runtime, error) {
	options := runtimeOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if options.runID == "" {
		options.runID = uuid.NewString()
	}
	rt := &Runtime{
		Config:     cfg,
		Logger:     logger.With(slog.String("run_id", options.runID)),
		Gate:       throttle.New(cfg.MinRequestInterval()),
		Metrics:    metrics.New(),
		RunID:      options.runID,
		ConfigPath: configPath,
	}

	if cfg.Output.Persist || options.forceStore {
		db, err := store.Open(ctx, cfg, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.db = db
		rt.Store = db
	}
	if cfg.Output.UploadDocuments || options.forceBlobs {
		blobs, err := blobstore.Open(ctx, cfg)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Blobs = blobs
	}
	return rt, nil
}

// DB returns the concrete store handle, nil when no store was opened.
func (r *Runtime) DB() *store.DB {
	return r.db
}

// Close releases the store.
func (r *Runtime) Close() error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ingestor builds the per-submission indexer over this runtime.
func (r *Runtime) Ingestor() *ingest.Ingestor {
	return ingest.New(r.Config, r.Store, r.Blobs, r.Logger)
}

// Spawner returns goroutine workers when workers.in_process is set and
// `edgarfeed worker` child processes otherwise.
func (r *Runtime) Spawner() worker.Spawner {
	if r.Config.Workers.InProcess {
		return worker.LocalSpawner{Handler: worker.IngestHandler(r.Ingestor())}
	}
	args := []string{"worker"}
	if r.ConfigPath != "" {
		args = append(args, "--config", r.ConfigPath)
	}
	return worker.ProcessSpawner{
		Args:   args,
		Env:              []string{"EDGARFEED_RUN_ID=" + r.RunID},
		HandshakeTimeout: r.Config.SubmissionTimeout(),
		Logger:           r.Logger,
	}
}

// Dispatcher builds the per-day worker dispatcher.
func (r *Runtime) Dispatcher(opts ...dispatch.Option) *dispatch.Dispatcher {
	opts = append([]dispatch.Option{dispatch.WithMetrics(r.Metrics)}, opts...)
	return dispatch.New(r.Config, r.Spawner(), r.Logger, opts...)
}

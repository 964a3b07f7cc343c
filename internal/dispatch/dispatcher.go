package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"edgarfeed/internal/config"
	"edgarfeed/internal/edgar"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/metrics"
	"edgarfeed/internal/services"
	"edgarfeed/internal/worker"
)

// slot is one entry of the worker table.
type slot struct {
	index   int
	worker  worker.Worker
	gen     int
	file    string
	jobID   string
	started time.Time
}

// quiet is how long the slot's worker has gone without a frame since the
// current job started.
func (s *slot) quiet(now time.Time) time.Duration {
	last := s.started
	if seen := s.worker.LastSeen(); seen.After(last) {
		last = seen
	}
	return now.Sub(last)
}

func (s *slot) busy() bool { return s.file != "" }

type event struct {
	slot   int
	gen    int
	result worker.Result
	exited bool
}

// Dispatcher assigns the files of one day directory to workers.
type Dispatcher struct {
	spawner worker.Spawner
	slots   int
	timeout time.Duration
	stall   time.Duration
	tick    time.Duration
	repad   bool
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTiming overrides the submission timeout and scheduling tick.
func WithTiming(timeout, tick time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
		if tick > 0 {
			d.tick = tick
		}
	}
}

// WithStallWindow overrides how long a busy worker may go without a
// heartbeat before it is replaced. Zero disables the check.
func WithStallWindow(window time.Duration) Option {
	return func(d *Dispatcher) { d.stall = window }
}

// WithRepad asks workers to restore full-width UUENCODE lines.
func WithRepad(repad bool) Option {
	return func(d *Dispatcher) { d.repad = repad }
}

// WithMetrics records worker activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New builds a Dispatcher sized from cfg.Workers.
func New(cfg *config.Config, spawner worker.Spawner, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		spawner: spawner,
		slots:   cfg.Workers.Count,
		timeout: cfg.SubmissionTimeout(),
		stall:   3 * cfg.HeartbeatInterval(),
		tick:    cfg.WorkerTick(),
		logger:  logging.ForComponent(logger, cfg, "dispatch"),
		now:     time.Now,
	}
	if d.slots <= 0 {
		d.slots = 1
	}
	if d.tick <= 0 {
		d.tick = 100 * time.Millisecond
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run indexes every regular file in dir and returns the day's statistics.
// It returns once no file remains and no slot is busy, or when ctx ends.
func (d *Dispatcher) Run(ctx context.Context, day time.Time, dir string) (DayStats, error) {
	dayLabel := day.Format(edgar.DayLayout)
	ctx = services.WithDay(ctx, dayLabel)
	logger := logging.WithContext(ctx, d.logger)
	stats := DayStats{Day: dayLabel}
	start := d.now()

	files, err := listFiles(dir)
	if err != nil {
		return stats, services.Wrap(services.ErrNotFound, "dispatch", "list", dir, err)
	}
	stats.Files = len(files)
	if len(files) == 0 {
		logger.Info("day directory empty", logging.String("dir", dir))
		return stats, nil
	}

	count := min(d.slots, len(files))
	table := make([]*slot, count)
	for i := range table {
		table[i] = &slot{index: i}
	}
	events := make(chan event, count)
	done := make(chan struct{})
	defer func() {
		close(done)
		for _, s := range table {
			if s.worker != nil {
				_ = s.worker.Kill()
			}
		}
		d.metrics.SetWorkersActive(0)
	}()

	next := 0
	assign := func(s *slot) error {
		if next >= len(files) || s.busy() {
			return nil
		}
		if s.worker == nil {
			w, err := d.spawner.Spawn(ctx)
			if err != nil {
				return services.Wrap(services.ErrTransport, "dispatch", "spawn worker", fmt.Sprintf("slot %d", s.index), err)
			}
			s.gen++
			s.worker = w
			go forward(w, s.index, s.gen, events, done)
		}
		name := files[next]
		next++
		job := worker.Job{
			ID:    uuid.NewString(),
			Path:  filepath.Join(dir, name),
			File:  name,
			Day:   dayLabel,
			Repad: d.repad,
		}
		s.file, s.jobID, s.started = name, job.ID, d.now()
		if err := s.worker.Send(job); err != nil {
			// A dead pipe surfaces as an exit event; treat it the same way.
			d.failSlot(ctx, s, &stats, "worker send failed", err)
		}
		return nil
	}
	fill := func() error {
		for _, s := range table {
			if err := assign(s); err != nil {
				return err
			}
		}
		d.metrics.SetWorkersActive(countBusy(table))
		return nil
	}

	if err := fill(); err != nil {
		return stats, err
	}
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for next < len(files) || countBusy(table) > 0 {
		select {
		case <-ctx.Done():
			stats.Elapsed = d.now().Sub(start)
			return stats, ctx.Err()
		case ev := <-events:
			s := table[ev.slot]
			if ev.gen != s.gen {
				continue
			}
			if ev.exited {
				d.failSlot(ctx, s, &stats, "worker exited", nil)
			} else if s.busy() && ev.result.JobID == s.jobID {
				d.record(ctx, s, ev.result, &stats)
			}
		case <-ticker.C:
			d.expire(ctx, table, &stats)
		}
		if err := fill(); err != nil {
			return stats, err
		}
	}

	stats.Elapsed = d.now().Sub(start)
	logger.Info("day indexed",
		logging.Int("files", stats.Files),
		logging.Int("completed", stats.Completed()),
		logging.Int("ok", stats.OK),
		logging.Int("failed", stats.Failed),
		logging.Int("timed_out", stats.TimedOut),
		logging.Int64("submission_bytes", stats.Bytes),
		logging.String("slowest_file", stats.Slowest.File),
		logging.Duration("slowest_elapsed", stats.Slowest.Elapsed),
		logging.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// record applies a result from the slot's current worker.
func (d *Dispatcher) record(ctx context.Context, s *slot, res worker.Result, stats *DayStats) {
	ok := res.Status == worker.StatusOK
	stats.Add(s.file, ok, res.Category, res.Elapsed(), res.Bytes, res.Documents)
	d.metrics.RecordSubmission(res.Status, categoryLabel(res), res.Elapsed(), res.Bytes, res.Documents)
	if !ok {
		logger := logging.WithContext(services.WithSlot(services.WithFile(ctx, s.file), s.index), d.logger)
		logging.WarnWithContext(logger, "submission failed", "submission_failed",
			logging.Accession(res.Accession),
			logging.String("error_message", res.Error),
			logging.String("error_category", res.Category),
			logging.String(logging.FieldErrorHint, "rerun `edgarfeed parse` on the file for details"),
			logging.String(logging.FieldImpact, "submission not indexed"),
		)
	}
	s.file, s.jobID = "", ""
}

// expire kills and replaces workers that have held a file too long or
// stopped sending heartbeats.
func (d *Dispatcher) expire(ctx context.Context, table []*slot, stats *DayStats) {
	now := d.now()
	for _, s := range table {
		if !s.busy() {
			continue
		}
		held := now.Sub(s.started)
		var msg, event, hint string
		var attrs []logging.Attr
		switch {
		case d.timeout > 0 && held >= d.timeout:
			msg, event = "worker timed out", "worker_timeout"
			hint = "raise workers.submission_timeout or inspect the file"
			attrs = append(attrs, logging.Duration("timeout", d.timeout))
		case d.stall > 0 && s.quiet(now) >= d.stall:
			msg, event = "worker stalled", "worker_stalled"
			hint = "the worker stopped sending heartbeats; check its stderr output"
			attrs = append(attrs, logging.Duration("quiet", s.quiet(now)))
		default:
			continue
		}
		logger := logging.WithContext(services.WithSlot(services.WithFile(ctx, s.file), s.index), d.logger)
		logging.WarnWithContext(logger, msg, event, append(attrs,
			logging.Duration("held", held),
			logging.Int("pid", s.worker.PID()),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "file dropped for this run"),
		)...)
		stats.TimedOut++
		d.metrics.RecordWorkerTimeout()
		d.replace(s)
	}
}

// failSlot counts the slot's file as failed and replaces its worker.
func (d *Dispatcher) failSlot(ctx context.Context, s *slot, stats *DayStats, msg string, err error) {
	if s.busy() {
		stats.Add(s.file, false, "transport", d.now().Sub(s.started), 0, 0)
		d.metrics.RecordSubmission(worker.StatusError, "transport", d.now().Sub(s.started), 0, 0)
		attrs := []logging.Attr{
			logging.String(logging.FieldErrorHint, "check worker stderr output"),
			logging.String(logging.FieldImpact, "submission not indexed"),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logger := logging.WithContext(services.WithSlot(services.WithFile(ctx, s.file), s.index), d.logger)
		logging.WarnWithContext(logger, msg, "worker_failed", attrs...)
	}
	d.replace(s)
}

// replace kills the slot's worker. The next assign spawns a fresh one under
// a new generation.
func (d *Dispatcher) replace(s *slot) {
	if s.worker != nil {
		if err := s.worker.Kill(); err != nil {
			d.logger.Debug("worker kill failed", logging.Slot(s.index), logging.Error(err))
		}
		d.metrics.RecordWorkerRestart()
	}
	s.worker = nil
	s.gen++
	s.file, s.jobID = "", ""
}

func forward(w worker.Worker, index, gen int, events chan<- event, done <-chan struct{}) {
	for res := range w.Results() {
		select {
		case events <- event{slot: index, gen: gen, result: res}:
		case <-done:
			return
		}
	}
	select {
	case events <- event{slot: index, gen: gen, exited: true}:
	case <-done:
	}
}

func countBusy(table []*slot) int {
	n := 0
	for _, s := range table {
		if s.busy() {
			n++
		}
	}
	return n
}

func categoryLabel(res worker.Result) string {
	if res.Status == worker.StatusOK {
		return "none"
	}
	if res.Category == "" {
		return "unknown"
	}
	return res.Category
}

// listFiles returns the regular files of dir in name order.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"edgarfeed/internal/dispatch"
	"edgarfeed/internal/edgar"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
)

// Indexer indexes one unpacked day directory. *dispatch.Dispatcher
// satisfies it.
type Indexer interface {
	Run(ctx context.Context, day time.Time, dir string) (dispatch.DayStats, error)
}

// Orchestrator sequences downloads and indexing for a date range.
type Orchestrator struct {
	rt      *Runtime
	fetcher Fetcher
	indexer Indexer
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrchestrator wires an orchestrator over rt.
func NewOrchestrator(rt *Runtime, fetcher Fetcher, indexer Indexer) *Orchestrator {
	return &Orchestrator{
		rt:      rt,
		fetcher: fetcher,
		indexer: indexer,
		logger:  logging.ForComponent(rt.Logger, rt.Config, "workflow"),
		now:     time.Now,
	}
}

type downloadSlot struct {
	index   int
	active  bool
	day     time.Time
	started time.Time
	cancel  context.CancelFunc
}

type downloadDone struct {
	slot    int
	day     time.Time
	dir     string
	result  FetchResult
	err     error
	elapsed time.Duration
}

type readyDay struct {
	day     time.Time
	dir     string
	archive FetchResult
}

type indexDone struct {
	ready readyDay
	stats dispatch.DayStats
	err   error
}

// runState is the in-memory control state of one run. Only the Run loop
// touches it.
type runState struct {
	cursor   time.Time
	end      time.Time
	queue    []time.Time
	retries  map[string]int
	attempts map[string]int
	slots    []*downloadSlot
	pending  []readyDay
	indexing bool

	downloads chan downloadDone
	indexed   chan indexDone
	summary   Summary
}

func (s *runState) activeDownloads() int {
	n := 0
	for _, slot := range s.slots {
		if slot.active {
			n++
		}
	}
	return n
}

func (s *runState) finished() bool {
	return s.cursor.After(s.end) && len(s.queue) == 0 && s.activeDownloads() == 0 &&
		!s.indexing && len(s.pending) == 0
}

// peek returns the next day to fetch: the retry queue first, then the
// forward cursor.
func (s *runState) peek() (time.Time, bool, bool) {
	if len(s.queue) > 0 {
		return s.queue[0], true, true
	}
	if s.cursor.After(s.end) {
		return time.Time{}, false, false
	}
	return s.cursor, false, true
}

func (s *runState) take(fromQueue bool) {
	if fromQueue {
		s.queue = s.queue[1:]
		return
	}
	s.cursor = edgar.NextBusinessDay(s.cursor)
}

// Run fetches and indexes every weekday in [from, to]. A zero to means
// today. Run returns when the range is exhausted, no day is queued for
// retry and nothing is in flight, or when ctx ends.
func (o *Orchestrator) Run(ctx context.Context, from, to time.Time) (Summary, error) {
	cfg := o.rt.Config
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "workflow", "lock", cfg.LockPath(), err)
	}
	if !ok {
		return Summary{}, services.Wrap(services.ErrConfiguration, "workflow", "lock",
			"another edgarfeed run holds "+cfg.LockPath(), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			o.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	if to.IsZero() {
		to = o.now()
	}
	st := &runState{
		cursor:    edgar.Truncate(from),
		end:       edgar.Truncate(to),
		retries:   make(map[string]int),
		attempts:  make(map[string]int),
		downloads: make(chan downloadDone, max(cfg.Archive.DownloadSlots, 1)),
		indexed:   make(chan indexDone, 1),
	}
	for edgar.IsWeekend(st.cursor) {
		st.cursor = st.cursor.AddDate(0, 0, 1)
	}
	for i := range max(cfg.Archive.DownloadSlots, 1) {
		st.slots = append(st.slots, &downloadSlot{index: i})
	}
	st.summary.Retries = st.retries

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.logger.Info("feed run started",
		logging.String("from", st.cursor.Format(edgar.DayLayout)),
		logging.String("to", st.end.Format(edgar.DayLayout)),
		logging.Int("download_slots", len(st.slots)),
	)

	tick := cfg.SchedulerTick()
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	o.schedule(runCtx, st)
	for !st.finished() {
		select {
		case <-ctx.Done():
			for _, slot := range st.slots {
				if slot.cancel != nil {
					slot.cancel()
				}
			}
			return st.summary, ctx.Err()
		case <-ticker.C:
		case done := <-st.downloads:
			o.downloadFinished(runCtx, st, done)
		case done := <-st.indexed:
			o.indexFinished(runCtx, st, done)
		}
		o.startIndex(runCtx, st)
		o.schedule(runCtx, st)
	}

	o.logger.Info("feed run finished",
		logging.Int("indexed", st.summary.Count(DayIndexed)),
		logging.Int("missing", st.summary.Count(DayMissing)),
		logging.Int("abandoned", st.summary.Count(DayAbandoned)),
	)
	return st.summary, nil
}

// schedule fills idle download slots. A throttle rejection leaves the day
// where it was and waits for the next tick.
func (o *Orchestrator) schedule(ctx context.Context, st *runState) {
	for _, slot := range st.slots {
		if slot.active {
			continue
		}
		day, fromQueue, ok := st.peek()
		if !ok {
			return
		}
		if err := o.rt.Gate.Allow(); err != nil {
			o.rt.Metrics.RecordThrottled()
			o.logger.Debug("download deferred by throttle",
				logging.Day(day),
				logging.Duration("remaining", o.rt.Gate.Remaining()),
			)
			return
		}
		st.take(fromQueue)
		o.startDownload(ctx, st, slot, day)
	}
}

func (o *Orchestrator) startDownload(ctx context.Context, st *runState, slot *downloadSlot, day time.Time) {
	cfg := o.rt.Config
	key := day.Format(edgar.DayLayout)
	st.attempts[key]++
	dest := filepath.Join(cfg.Paths.FeedsDir, edgar.ArchiveDirName(day))

	dlCtx, cancel := context.WithTimeout(services.WithSlot(services.WithDay(ctx, key), slot.index), cfg.DownloadTimeout())
	slot.active, slot.day, slot.started, slot.cancel = true, day, o.now(), cancel
	o.rt.Metrics.SetDownloadsActive(st.activeDownloads())

	logging.WithContext(dlCtx, o.logger).Info("archive download started",
		logging.Int("attempt", st.attempts[key]),
	)
	go func(index int) {
		start := time.Now()
		res, err := o.fetcher.Fetch(dlCtx, day, dest)
		if err != nil && errors.Is(dlCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
			err = services.Wrap(services.ErrTimeout, "workflow", "download", key, err)
		}
		st.downloads <- downloadDone{slot: index, day: day, dir: dest, result: res, err: err, elapsed: time.Since(start)}
	}(slot.index)
}

func (o *Orchestrator) downloadFinished(ctx context.Context, st *runState, done downloadDone) {
	slot := st.slots[done.slot]
	if slot.cancel != nil {
		slot.cancel()
	}
	slot.active, slot.cancel = false, nil
	o.rt.Metrics.SetDownloadsActive(st.activeDownloads())

	key := done.day.Format(edgar.DayLayout)
	dayCtx := services.WithDay(ctx, key)
	switch {
	case done.err == nil:
		o.rt.Metrics.RecordDownload("ok", done.elapsed, done.result.Bytes)
		st.pending = append(st.pending, readyDay{day: done.day, dir: done.dir, archive: done.result})
	case errors.Is(done.err, ErrMissing):
		o.rt.Metrics.RecordDownload("missing", done.elapsed, 0)
		o.rt.Metrics.RecordDay(DayMissing)
		logging.WithContext(dayCtx, o.logger).Info("archive not published, skipping day")
		st.summary.Days = append(st.summary.Days, DayResult{Day: key, Status: DayMissing, Attempts: st.attempts[key]})
	default:
		o.rt.Metrics.RecordDownload(services.Category(done.err), done.elapsed, done.result.Bytes)
		o.retry(dayCtx, st, done.day, FetchResult{}, dispatch.DayStats{}, done.err)
	}
}

func (o *Orchestrator) startIndex(ctx context.Context, st *runState) {
	if st.indexing || len(st.pending) == 0 {
		return
	}
	ready := st.pending[0]
	st.pending = st.pending[1:]
	st.indexing = true
	go func() {
		stats, err := o.indexer.Run(ctx, ready.day, ready.dir)
		st.indexed <- indexDone{ready: ready, stats: stats, err: err}
	}()
}

func (o *Orchestrator) indexFinished(ctx context.Context, st *runState, done indexDone) {
	st.indexing = false
	cfg := o.rt.Config
	key := done.ready.day.Format(edgar.DayLayout)
	dayCtx := services.WithDay(ctx, key)

	if !cfg.Output.KeepArchives {
		if err := os.RemoveAll(done.ready.dir); err != nil {
			o.logger.Warn("failed to remove unpacked archive",
				logging.String("dir", done.ready.dir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "archive_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory by hand"),
			)
		}
	}

	switch {
	case done.err != nil:
		if ctx.Err() != nil {
			return
		}
		o.retry(dayCtx, st, done.ready.day, done.ready.archive, done.stats, done.err)
	case cfg.Archive.MaxErrorRatio > 0 && done.stats.ErrorRatio() > cfg.Archive.MaxErrorRatio:
		err := services.Wrap(services.ErrTransport, "workflow", "index",
			fmt.Sprintf("error ratio %.3f exceeds %.3f", done.stats.ErrorRatio(), cfg.Archive.MaxErrorRatio), nil)
		o.retry(dayCtx, st, done.ready.day, done.ready.archive, done.stats, err)
	default:
		o.rt.Metrics.RecordDay(DayIndexed)
		st.summary.Days = append(st.summary.Days, DayResult{
			Day:      key,
			Status:   DayIndexed,
			Attempts: st.attempts[key],
			Archive:  done.ready.archive,
			Stats:    done.stats,
		})
	}
}

// retry re-queues day unless its retry cap is spent, in which case the day
// is abandoned.
func (o *Orchestrator) retry(ctx context.Context, st *runState, day time.Time, archive FetchResult, stats dispatch.DayStats, cause error) {
	key := day.Format(edgar.DayLayout)
	logger := logging.WithContext(ctx, o.logger)
	limit := o.rt.Config.Archive.MaxRetries
	if st.retries[key] >= limit {
		o.rt.Metrics.RecordDay(DayAbandoned)
		logging.ErrorWithContext(logger, "day abandoned after retries", "day_abandoned",
			append(logging.ErrorAttrs(cause),
				logging.Int("retries", st.retries[key]),
				logging.String(logging.FieldErrorHint, "rerun the day with --from/--to once the cause is fixed"),
				logging.String(logging.FieldImpact, "filings for this day are not indexed"),
			)...,
		)
		st.summary.Days = append(st.summary.Days, DayResult{
			Day:      key,
			Status:   DayAbandoned,
			Attempts: st.attempts[key],
			Archive:  archive,
			Stats:    stats,
			Err:      cause.Error(),
		})
		return
	}
	st.retries[key]++
	st.queue = append(st.queue, day)
	o.rt.Metrics.RecordRetry()
	logging.WarnWithContext(logger, "day re-queued", "day_retry",
		append(logging.ErrorAttrs(cause),
			logging.Int("retry", st.retries[key]),
			logging.Int("max_retries", limit),
			logging.String(logging.FieldErrorHint, "transient host or network failure; will retry"),
			logging.String(logging.FieldImpact, "day delayed"),
		)...,
	)
}

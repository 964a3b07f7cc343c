package dispatch_test

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"edgarfeed/internal/dispatch"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/testsupport"
	"edgarfeed/internal/worker"
)

var feedDay = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type countingSpawner struct {
	inner  worker.Spawner
	spawns atomic.Int32
}

func (c *countingSpawner) Spawn(ctx context.Context) (worker.Worker, error) {
	c.spawns.Add(1)
	return c.inner.Spawn(ctx)
}

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, name)
}

func (r *recorder) files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func dayDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(dir, name), name)
	}
	return dir
}

func newDispatcher(t *testing.T, slots int, spawner worker.Spawner) *dispatch.Dispatcher {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(slots, 1))
	return dispatch.New(cfg, spawner, logging.NewNop(), dispatch.WithTiming(100*time.Millisecond, 5*time.Millisecond))
}

func TestRunKillsHungWorkerAndContinues(t *testing.T) {
	rec := &recorder{}
	spawner := &countingSpawner{inner: worker.LocalSpawner{Handler: func(ctx context.Context, job worker.Job) worker.Result {
		rec.add(job.File)
		if job.File == "a.nc" {
			<-ctx.Done()
		}
		return worker.Result{Status: worker.StatusOK, Bytes: 10, Documents: 1}
	}}}

	stats, err := newDispatcher(t, 1, spawner).Run(context.Background(), feedDay, dayDir(t, "a.nc", "b.nc", "c.nc"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Files != 3 || stats.OK != 2 || stats.Failed != 0 || stats.TimedOut != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Completed() != 2 {
		t.Fatalf("hung file must not count as completed, got %d", stats.Completed())
	}
	if got := spawner.spawns.Load(); got != 2 {
		t.Fatalf("expected one replacement worker, spawned %d", got)
	}
	if got := rec.files(); !reflect.DeepEqual(got, []string{"a.nc", "b.nc", "c.nc"}) {
		t.Fatalf("files dispatched out of order: %v", got)
	}
}

func TestRunAggregatesResults(t *testing.T) {
	spawner := worker.LocalSpawner{Handler: func(_ context.Context, job worker.Job) worker.Result {
		switch job.File {
		case "bad.nc":
			return worker.Result{Status: worker.StatusError, Category: "format", Error: "duplicate tag"}
		case "big.nc":
			return worker.Result{Status: worker.StatusOK, Bytes: 500, Documents: 4, ElapsedMS: 40}
		default:
			return worker.Result{Status: worker.StatusOK, Bytes: 100, Documents: 1, ElapsedMS: 5}
		}
	}}

	stats, err := newDispatcher(t, 3, spawner).Run(context.Background(), feedDay, dayDir(t, "a.nc", "bad.nc", "big.nc", "c.nc"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Day != "20240301" || stats.OK != 3 || stats.Failed != 1 || stats.TimedOut != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Bytes != 700 || stats.Documents != 6 {
		t.Fatalf("unexpected totals bytes=%d documents=%d", stats.Bytes, stats.Documents)
	}
	if stats.Slowest.File != "big.nc" || stats.Slowest.Elapsed != 40*time.Millisecond {
		t.Fatalf("unexpected slowest %+v", stats.Slowest)
	}
	if stats.Categories["format"] != 1 {
		t.Fatalf("expected format failure category, got %v", stats.Categories)
	}
	if ratio := stats.ErrorRatio(); ratio != 0.25 {
		t.Fatalf("expected error ratio 0.25, got %v", ratio)
	}
}

func TestRunForwardsRepad(t *testing.T) {
	var repadded atomic.Int32
	spawner := worker.LocalSpawner{Handler: func(_ context.Context, job worker.Job) worker.Result {
		if job.Repad {
			repadded.Add(1)
		}
		return worker.Result{Status: worker.StatusOK}
	}}
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2, 1))
	d := dispatch.New(cfg, spawner, logging.NewNop(), dispatch.WithTiming(time.Second, 5*time.Millisecond), dispatch.WithRepad(true))

	if _, err := d.Run(context.Background(), feedDay, dayDir(t, "a.nc", "b.nc")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := repadded.Load(); got != 2 {
		t.Fatalf("expected both jobs to carry repad, got %d", got)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	stats, err := newDispatcher(t, 2, worker.LocalSpawner{}).Run(context.Background(), feedDay, t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Files != 0 || stats.Completed() != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

type crashingWorker struct {
	results chan worker.Result
	once    sync.Once
}

func (w *crashingWorker) Send(worker.Job) error {
	w.once.Do(func() { close(w.results) })
	return nil
}
func (w *crashingWorker) Results() <-chan worker.Result { return w.results }
func (w *crashingWorker) Kill() error {
	w.once.Do(func() { close(w.results) })
	return nil
}
func (w *crashingWorker) LastSeen() time.Time { return time.Now() }
func (w *crashingWorker) PID() int { return 0 }

type crashingSpawner struct{}

func (crashingSpawner) Spawn(context.Context) (worker.Worker, error) {
	return &crashingWorker{results: make(chan worker.Result)}, nil
}

// silentWorker accepts jobs but never answers or heartbeats.
type silentWorker struct {
	results chan worker.Result
	spawned time.Time
	once    sync.Once
}

func (w *silentWorker) Send(worker.Job) error { return nil }
func (w *silentWorker) Results() <-chan worker.Result { return w.results }
func (w *silentWorker) LastSeen() time.Time { return w.spawned }
func (w *silentWorker) Kill() error {
	w.once.Do(func() { close(w.results) })
	return nil
}
func (w *silentWorker) PID() int { return 0 }

type silentSpawner struct{}

func (silentSpawner) Spawn(context.Context) (worker.Worker, error) {
	return &silentWorker{results: make(chan worker.Result), spawned: time.Now()}, nil
}

func TestRunReplacesWorkerThatStopsHeartbeating(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1, 3600))
	d := dispatch.New(cfg, silentSpawner{}, logging.NewNop(),
		dispatch.WithTiming(time.Hour, 5*time.Millisecond),
		dispatch.WithStallWindow(50*time.Millisecond))

	dir := dayDir(t, "a.nc", "b.nc")
	done := make(chan struct{})
	var stats dispatch.DayStats
	var err error
	go func() {
		defer close(done)
		stats, err = d.Run(context.Background(), feedDay, dir)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stalled workers were never replaced")
	}
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.TimedOut != 2 || stats.OK != 0 {
		t.Fatalf("expected both files dropped as stalled, got %+v", stats)
	}
}

func TestRunCountsExitedWorkerAsFailure(t *testing.T) {
	stats, err := newDispatcher(t, 1, crashingSpawner{}).Run(context.Background(), feedDay, dayDir(t, "a.nc", "b.nc"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != 2 || stats.Categories["transport"] != 2 {
		t.Fatalf("expected both files failed, got %+v", stats)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	spawner := worker.LocalSpawner{Handler: func(ctx context.Context, _ worker.Job) worker.Result {
		cancel()
		<-ctx.Done()
		return worker.Result{}
	}}
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1, 60))
	_, err := dispatch.New(cfg, spawner, nil).Run(ctx, feedDay, dayDir(t, "a.nc"))
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestStatsAddIsOrderIndependent(t *testing.T) {
	type result struct {
		file    string
		ok      bool
		elapsed time.Duration
		bytes   int64
	}
	results := []result{
		{"b.nc", true, 30 * time.Millisecond, 10},
		{"a.nc", true, 30 * time.Millisecond, 20},
		{"c.nc", false, 5 * time.Millisecond, 0},
		{"d.nc", true, 10 * time.Millisecond, 40},
	}
	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}

	var first dispatch.DayStats
	for i, order := range orders {
		var stats dispatch.DayStats
		for _, idx := range order {
			r := results[idx]
			stats.Add(r.file, r.ok, "format", r.elapsed, r.bytes, 1)
		}
		if i == 0 {
			first = stats
			continue
		}
		if !reflect.DeepEqual(stats, first) {
			t.Fatalf("order %v produced %+v, want %+v", order, stats, first)
		}
	}
	if first.Slowest.File != "a.nc" {
		t.Fatalf("tie should go to the smaller name, got %q", first.Slowest.File)
	}
}

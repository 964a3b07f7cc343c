package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Send after Kill.
var ErrStopped = errors.New("worker stopped")

// LocalSpawner runs workers as goroutines in the current process.
type LocalSpawner struct {
	Handler Handler
}

func (s LocalSpawner) Spawn(ctx context.Context) (Worker, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := &localWorker{
		jobs:    make(chan Job, 1),
		results: make(chan Result, 1),
		cancel:  cancel,
	}
	go w.loop(ctx, s.Handler)
	return w, nil
}

type localWorker struct {
	jobs    chan Job
	results chan Result
	cancel  context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

func (w *localWorker) loop(ctx context.Context, handle Handler) {
	defer close(w.results)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			res := run(ctx, handle, job)
			if ctx.Err() != nil {
				return
			}
			select {
			case w.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *localWorker) Send(job Job) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.jobs <- job:
		return nil
	default:
		return errors.New("worker busy")
	}
}

func (w *localWorker) Results() <-chan Result { return w.results }

// Kill cancels the worker's context. A handler that ignores cancellation
// keeps its goroutine until it returns, but its result is discarded.
func (w *localWorker) Kill() error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cancel()
	return nil
}

// LastSeen is always now: an in-process handler cannot go silent without
// also holding its file past the submission timeout.
func (w *localWorker) LastSeen() time.Time { return time.Now() }

func (w *localWorker) PID() int { return 0 }

package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Handler processes one job and always returns a result.
type Handler func(ctx context.Context, job Job) Result

// ServeOption adjusts Serve.
type ServeOption func(*server)

// WithHeartbeat emits a heartbeat frame every interval while a job runs.
func WithHeartbeat(interval time.Duration) ServeOption {
	return func(s *server) { s.heartbeat = interval }
}

type server struct {
	heartbeat time.Duration

	mu  sync.Mutex
	enc interface{ Encode(v any) error }
}

func (s *server) send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(msg)
}

// Serve runs the worker side of the protocol: announce readiness, then
// handle jobs one at a time until the input closes or ctx ends.
func Serve(ctx context.Context, in io.Reader, out io.Writer, handle Handler, opts ...ServeOption) error {
	s := &server{enc: NewEncoder(out)}
	for _, opt := range opts {
		opt(s)
	}
	dec := NewDecoder(in)
	if err := s.send(Message{Kind: KindReady, PID: os.Getpid()}); err != nil {
		return fmt.Errorf("announce ready: %w", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read job: %w", err)
		}
		if msg.Kind != KindJob || msg.Job == nil {
			continue
		}
		stop := s.beat(msg.Job.ID)
		res := run(ctx, handle, *msg.Job)
		stop()
		if err := s.send(Message{Kind: KindResult, Result: &res}); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
}

// beat starts the heartbeat loop for jobID; the returned func stops it and
// waits for the loop to exit.
func (s *server) beat(jobID string) func() {
	if s.heartbeat <= 0 {
		return func() {}
	}
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				if err := s.send(Message{Kind: KindHeartbeat, JobID: jobID}); err != nil {
					return
				}
			}
		}
	}()
	return func() {
		close(quit)
		wg.Wait()
	}
}

func run(ctx context.Context, handle Handler, job Job) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusError, Error: fmt.Sprintf("panic: %v", r), Category: "unknown"}
		}
		res.JobID = job.ID
		res.File = job.File
		res.Day = job.Day
		if res.ElapsedMS == 0 {
			res.ElapsedMS = time.Since(start).Milliseconds()
		}
	}()
	return handle(ctx, job)
}

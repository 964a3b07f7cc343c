package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"edgarfeed/internal/logging"
)

// ProcessSpawner starts `<Executable> <Args...>` child processes that run
// Serve on their stdin/stdout. Children get their own process group so a
// kill also reaches anything they started.
type ProcessSpawner struct {
	Executable string
	Args       []string
	Env        []string
	// HandshakeTimeout bounds the wait for the child's ready message.
	// Zero waits until ctx is done.
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

func (s ProcessSpawner) Spawn(ctx context.Context) (Worker, error) {
	exe := s.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
	}
	cmd := exec.Command(exe, s.Args...) //nolint:gosec
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	w := &processWorker{
		cmd:     cmd,
		stdin:   stdin,
		enc:     NewEncoder(stdin),
		results: make(chan Result, 1),
		done:    make(chan struct{}),
		logger:  logging.NewComponentLogger(s.Logger, "worker"),
	}
	dec := NewDecoder(bufio.NewReader(stdout))
	if err := w.handshake(ctx, dec, s.HandshakeTimeout); err != nil {
		return nil, fmt.Errorf("worker handshake: %w", err)
	}
	go w.read(dec)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Kill()
		case <-w.done:
		}
	}()
	return w, nil
}

// handshake waits for the ready message. On failure the child is killed
// and reaped.
func (w *processWorker) handshake(ctx context.Context, dec interface{ Decode(v any) error }, timeout time.Duration) error {
	ready := make(chan error, 1)
	go func() {
		var msg Message
		err := dec.Decode(&msg)
		if err == nil && msg.Kind != KindReady {
			err = fmt.Errorf("unexpected first message %q", msg.Kind)
		}
		if err == nil {
			w.touch()
		}
		ready <- err
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var err error
	select {
	case err = <-ready:
		if err == nil {
			return nil
		}
		_ = w.Kill()
		_ = w.cmd.Wait()
		return err
	case <-ctx.Done():
		err = ctx.Err()
	case <-expired:
		err = fmt.Errorf("no ready message within %s", timeout)
	}
	_ = w.Kill()
	go func() {
		<-ready
		_ = w.cmd.Wait()
	}()
	return err
}

type processWorker struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	results chan Result
	done    chan struct{}
	logger  *slog.Logger

	mu     sync.Mutex
	enc    interface{ Encode(v any) error }
	killed bool

	seen atomic.Int64
}

func (w *processWorker) read(dec interface{ Decode(v any) error }) {
	defer close(w.done)
	defer close(w.results)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) && !w.isKilled() {
				w.logger.Debug("worker stream closed", logging.Int("pid", w.PID()), logging.Error(err))
			}
			_ = w.cmd.Wait()
			return
		}
		w.touch()
		if msg.Kind == KindResult && msg.Result != nil {
			w.results <- *msg.Result
		}
	}
}

func (w *processWorker) Send(job Job) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.killed {
		return ErrStopped
	}
	return w.enc.Encode(Message{Kind: KindJob, Job: &job})
}

func (w *processWorker) Results() <-chan Result { return w.results }

func (w *processWorker) touch() { w.seen.Store(time.Now().UnixNano()) }

func (w *processWorker) LastSeen() time.Time { return time.Unix(0, w.seen.Load()) }

// Kill sends SIGKILL to the worker's process group.
func (w *processWorker) Kill() error {
	w.mu.Lock()
	if w.killed {
		w.mu.Unlock()
		return nil
	}
	w.killed = true
	w.mu.Unlock()

	_ = w.stdin.Close()
	pid := w.PID()
	if pid <= 0 {
		return nil
	}
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill worker %d: %w", pid, err)
	}
	return nil
}

func (w *processWorker) isKilled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.killed
}

func (w *processWorker) PID() int {
	if w.cmd == nil || w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}

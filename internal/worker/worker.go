package worker

import (
	"context"
	"time"
)

// Worker is one running worker. Results delivers results in job order and
// is closed when the worker exits. LastSeen is when the worker last sent any
// frame.
type Worker interface {
	Send(job Job) error
	Results() <-chan Result
	LastSeen() time.Time
	Kill() error
	PID() int
}

// Spawner starts workers.
type Spawner interface {
	Spawn(ctx context.Context) (Worker, error)
}

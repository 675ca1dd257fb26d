// Package executor provides the worker pool that runs the container's
// lifecycle tasks.
//
// Jobs are keyed by identity: a job is never run by two workers at the same
// time, and submitting a job that is currently running schedules exactly one
// more run after it finishes. Submission never blocks, so it is safe to
// submit while holding locks.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/conductor/pkg/logging"
)

// Job is a unit of work. Implementations must be comparable, pointer types
// are the usual choice.
type Job interface {
	Run(ctx context.Context)
}

// JobFunc adapts a function to Job. Each submission of a *JobFunc value is
// keyed by the pointer.
type JobFunc func(ctx context.Context)

func (f *JobFunc) Run(ctx context.Context) { (*f)(ctx) }

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("executor: pool is shut down")

// Config configures a Pool.
type Config struct {
	// Workers is the number of goroutines running jobs. Defaults to
	// DefaultWorkers().
	Workers int
}

// DefaultWorkers returns the default worker count. Start and stop hooks may
// block a worker, so the default is deliberately larger than the CPU count.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0) * 2
	if n < 4 {
		n = 4
	}
	return n
}

// Pool runs submitted jobs on a fixed number of workers.
type Pool struct {
	config Config
	queue  *workQueue

	mu      sync.Mutex
	group   *errgroup.Group
	cancel  context.CancelFunc
	started bool
	closed  bool
}

// NewPool creates a pool. Call Start before submitting work.
func NewPool(config Config) *Pool {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers()
	}
	return &Pool{
		config: config,
		queue:  newWorkQueue(),
	}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.config.Workers
}

// Start launches the workers. The context is passed to every job; when it is
// cancelled the pool shuts down.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return fmt.Errorf("executor: pool already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	p.group = group
	p.cancel = cancel
	p.started = true

	// Shut the queue down when the pool's context ends so blocked workers
	// wake up.
	group.Go(func() error {
		<-gctx.Done()
		p.queue.Shutdown()
		return nil
	})

	for i := 0; i < p.config.Workers; i++ {
		id := i
		group.Go(func() error {
			p.worker(gctx, id)
			return nil
		})
	}

	logging.Debug("Executor", "Started %d workers", p.config.Workers)
	return nil
}

// Submit schedules job. It never blocks.
func (p *Pool) Submit(job Job) error {
	if !p.queue.Add(job) {
		return ErrPoolClosed
	}
	return nil
}

// Len returns the number of jobs waiting for a worker.
func (p *Pool) Len() int {
	return p.queue.Len()
}

// Shutdown stops accepting jobs, lets the workers drain the queue and waits
// for them to exit or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	group, cancel := p.group, p.cancel
	p.mu.Unlock()

	p.queue.Shutdown()
	if group == nil {
		return nil
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	select {
	case err := <-done:
		logging.Debug("Executor", "All workers stopped")
		return err
	case <-ctx.Done():
		return fmt.Errorf("executor: waiting for workers: %w", ctx.Err())
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	logging.Debug("Executor", "Worker %d started", id)

	for {
		job, ok := p.queue.Get()
		if !ok {
			logging.Debug("Executor", "Worker %d shutting down", id)
			return
		}

		p.run(ctx, job)
		p.queue.Done(job)
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Executor", fmt.Errorf("panic: %v", r), "Job %T panicked", job)
		}
	}()
	job.Run(ctx)
}

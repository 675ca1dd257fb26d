package services

import (
	"context"
	"sync"
	"time"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/pkg/logging"
)

// Retrier is a listener that retries failed starts with a fixed backoff, up
// to MaxAttempts retries per service.
type Retrier struct {
	container.BaseListener

	backoff     time.Duration
	maxAttempts int

	mu       sync.Mutex
	attempts map[service.Name]int
	timers   map[*retry]struct{}
	idle     chan struct{}
	closed   bool
}

type retry struct {
	timer *time.Timer
}

// NewRetrier creates a Retrier. A maxAttempts of zero disables retries.
func NewRetrier(backoff time.Duration, maxAttempts int) *Retrier {
	idle := make(chan struct{})
	close(idle)
	return &Retrier{
		backoff:     backoff,
		maxAttempts: maxAttempts,
		attempts:    make(map[service.Name]int),
		timers:      make(map[*retry]struct{}),
		idle:        idle,
	}
}

// ServiceFailed schedules a retry if attempts remain.
func (r *Retrier) ServiceFailed(c *container.Controller, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.attempts[c.Name()] >= r.maxAttempts {
		logging.Warn("Services", "Giving up on %s: %v", c.Name(), reason)
		return
	}
	r.attempts[c.Name()]++
	if len(r.timers) == 0 {
		r.idle = make(chan struct{})
	}

	rt := &retry{}
	rt.timer = time.AfterFunc(r.backoff, func() {
		logging.Debug("Services", "Retrying %s", c.Name())
		c.Retry()
		r.finish(rt)
	})
	r.timers[rt] = struct{}{}
}

// ServiceStarted resets the attempt count.
func (r *Retrier) ServiceStarted(c *container.Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, c.Name())
}

func (r *Retrier) finish(rt *retry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.timers[rt]; !ok {
		return
	}
	delete(r.timers, rt)
	if len(r.timers) == 0 {
		close(r.idle)
	}
}

// Pending returns the number of scheduled retries.
func (r *Retrier) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Wait blocks until no retry is scheduled or ctx ends.
func (r *Retrier) Wait(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels scheduled retries and disables new ones.
func (r *Retrier) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for rt := range r.timers {
		rt.timer.Stop()
		delete(r.timers, rt)
	}
	select {
	case <-r.idle:
	default:
		close(r.idle)
	}
}

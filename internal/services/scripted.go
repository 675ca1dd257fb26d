package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/pkg/logging"
)

// Scripted is a service whose behaviour is described by configuration: it
// takes StartDelay to start, fails its first FailStarts attempts and exposes
// a constant value.
type Scripted struct {
	name       service.Name
	startDelay time.Duration
	value      any

	mu         sync.Mutex
	failStarts int
	starts     int
	stops      int
	running    bool
}

var _ service.Service = (*Scripted)(nil)

// NewScripted creates a scripted service from its configuration.
func NewScripted(name service.Name, cfg config.ServiceConfig) *Scripted {
	return &Scripted{
		name:       name,
		startDelay: cfg.StartDelay,
		value:      cfg.Value,
		failStarts: cfg.FailStarts,
	}
}

// Start waits for the configured delay and then succeeds unless failures
// remain.
func (s *Scripted) Start(ctx context.Context) error {
	if s.startDelay > 0 {
		timer := time.NewTimer(s.startDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	if s.failStarts > 0 {
		s.failStarts--
		return fmt.Errorf("scripted failure %d of %s", s.starts, s.name)
	}
	s.running = true
	logging.Debug("Services", "Scripted service %s started after %d attempt(s)", s.name, s.starts)
	return nil
}

// Stop marks the service stopped.
func (s *Scripted) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.running = false
	return nil
}

// Value returns the configured value.
func (s *Scripted) Value() (any, error) {
	return s.value, nil
}

// Attempts returns how often Start and Stop were called.
func (s *Scripted) Attempts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

// Running reports whether the last start succeeded and no stop followed.
func (s *Scripted) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

package container_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/internal/testing/recorder"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitTimeout = 5 * time.Second

var errStartRefused = errors.New("start refused")

func newContainer(t *testing.T, opts ...container.Option) *container.Container {
	t.Helper()
	ct := container.New(append([]container.Option{container.WithWorkers(4)}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		require.NoError(t, ct.Shutdown(ctx))
	})
	return ct
}

func settle(t *testing.T, ct *container.Container) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, ct.AwaitStability(ctx), "container did not settle")
}

func name(segments ...string) service.Name {
	return service.MustName(segments...)
}

// install declares and installs a service with required dependencies and the
// given listener.
func install(t *testing.T, ct *container.Container, n service.Name, svc service.Service, l container.Listener, deps ...service.Name) *container.Controller {
	t.Helper()
	b := ct.AddService(n, svc)
	require.NoError(t, b.AddDependencies(deps...))
	if l != nil {
		require.NoError(t, b.AddListener(l))
	}
	require.NoError(t, b.Install())
	c, err := ct.Service(n)
	require.NoError(t, err)
	return c
}

func setMode(t *testing.T, c *container.Controller, mode container.Mode) {
	t.Helper()
	require.NoError(t, c.SetMode(mode))
}

func requireState(t *testing.T, c *container.Controller, state container.State) {
	t.Helper()
	require.Equal(t, state, c.State(), "state of %s", c.Name())
}

func requireEvents(t *testing.T, rec *recorder.Recorder, n service.Name, kinds ...container.EventKind) {
	t.Helper()
	got := rec.Kinds(n)
	if len(kinds) == 0 {
		require.Empty(t, got, "events for %s", n)
		return
	}
	require.Equal(t, kinds, got, "events for %s\n%s", n, rec)
}

// flakyService fails to start while failNext is set, like a service whose
// backing resource is unavailable.
type flakyService struct {
	mu       sync.Mutex
	failNext bool
	starts   int
	stops    int
	value    any
}

func newFlaky(fail bool) *flakyService {
	return &flakyService{failNext: fail}
}

func (s *flakyService) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	if s.failNext {
		return errStartRefused
	}
	return nil
}

func (s *flakyService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *flakyService) Value() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *flakyService) setFailNext(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = fail
}

func (s *flakyService) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

// blockingService blocks in Start until released.
type blockingService struct {
	started chan struct{}
	release chan struct{}
}

func newBlocking() *blockingService {
	return &blockingService{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *blockingService) Start(context.Context) error {
	s.started <- struct{}{}
	<-s.release
	return nil
}

func (s *blockingService) Stop(context.Context) error { return nil }
func (s *blockingService) Value() (any, error)        { return nil, nil }

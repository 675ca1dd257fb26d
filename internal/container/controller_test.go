package container_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/internal/testing/recorder"
)

func TestControllerLifecycle(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	n := name("app", "db")

	c := install(t, ct, n, service.Const("dsn"), rec)
	settle(t, ct)

	requireState(t, c, container.StateUp)
	requireEvents(t, rec, n,
		container.EventListenerAdded,
		container.EventServiceStarting,
		container.EventServiceStarted,
	)
	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "dsn", v)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, container.ModeActive, c.Mode())

	setMode(t, c, container.ModeNever)
	settle(t, ct)
	requireState(t, c, container.StateDown)
	assert.Equal(t, container.EventServiceStopped, rec.Entries()[len(rec.Entries())-1].Kind)
	assert.Equal(t, 1, rec.Count(n, container.EventServiceStopping))

	_, err = c.Value()
	assert.True(t, container.IsUsage(err))
	assert.ErrorIs(t, err, container.ErrNotUp)

	setMode(t, c, container.ModeRemove)
	settle(t, ct)
	requireState(t, c, container.StateRemoved)
	assert.Equal(t, 1, rec.Count(n, container.EventServiceRemoved))

	_, err = ct.Service(n)
	assert.True(t, container.IsNotFound(err))
	assert.ErrorIs(t, err, container.ErrServiceNotFound)
}

func TestSetModeValidation(t *testing.T) {
	ct := newContainer(t)
	c := install(t, ct, name("svc"), service.Null, nil)

	err := c.SetMode(container.Mode(42))
	assert.True(t, container.IsStructural(err))
	assert.ErrorIs(t, err, container.ErrInvalidArgument)

	setMode(t, c, container.ModeRemove)
	setMode(t, c, container.ModeRemove)

	err = c.SetMode(container.ModeActive)
	assert.True(t, container.IsUsage(err))
	assert.ErrorIs(t, err, container.ErrModeAfterRemove)
	settle(t, ct)
}

func TestStartFailureIsContained(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	svc := newFlaky(true)
	n := name("flaky")

	c := install(t, ct, n, svc, rec)
	settle(t, ct)

	requireState(t, c, container.StateStartFailed)
	requireEvents(t, rec, n,
		container.EventListenerAdded,
		container.EventServiceStarting,
		container.EventServiceFailed,
	)
	last, _ := rec.Last(n)
	var startErr *container.StartError
	require.ErrorAs(t, last.Err, &startErr)
	assert.Equal(t, n, startErr.Name)
	assert.ErrorIs(t, c.StartError(), errStartRefused)

	// Toggling the mode retries.
	svc.setFailNext(false)
	setMode(t, c, container.ModeNever)
	settle(t, ct)
	requireState(t, c, container.StateDown)
	assert.Nil(t, c.StartError())

	setMode(t, c, container.ModeActive)
	settle(t, ct)
	requireState(t, c, container.StateUp)
	starts, _ := svc.counts()
	assert.Equal(t, 2, starts)
}

func TestStartPanicIsContained(t *testing.T) {
	ct := newContainer(t)
	svc := service.Funcs{StartFunc: func(context.Context) error { panic("kaboom") }}

	c := install(t, ct, name("panicky"), svc, nil)
	settle(t, ct)

	requireState(t, c, container.StateStartFailed)
	assert.Contains(t, c.StartError().Error(), "kaboom")
}

func TestStopErrorDoesNotBlock(t *testing.T) {
	ct := newContainer(t)
	svc := service.Funcs{StopFunc: func(context.Context) error { return errors.New("close failed") }}

	c := install(t, ct, name("svc"), svc, nil)
	settle(t, ct)
	requireState(t, c, container.StateUp)

	setMode(t, c, container.ModeNever)
	settle(t, ct)
	requireState(t, c, container.StateDown)
}

func TestAddListener(t *testing.T) {
	ct := newContainer(t)
	n := name("svc")
	c := install(t, ct, n, service.Null, nil)
	settle(t, ct)

	// A late listener only sees the catch-up event, not the past start.
	late := recorder.New()
	require.NoError(t, c.AddListener(late))
	settle(t, ct)
	requireEvents(t, late, n, container.EventListenerAdded)

	err := c.AddListener(late)
	assert.True(t, container.IsUsage(err))
	assert.ErrorIs(t, err, container.ErrDuplicateListener)

	setMode(t, c, container.ModeNever)
	settle(t, ct)
	requireEvents(t, late, n,
		container.EventListenerAdded,
		container.EventServiceStopping,
		container.EventServiceStopped,
	)

	assert.True(t, c.RemoveListener(late))
	assert.False(t, c.RemoveListener(late))
	setMode(t, c, container.ModeRemove)
	settle(t, ct)
	assert.Equal(t, 0, late.Count(n, container.EventServiceRemoved))

	err = c.AddListener(recorder.New())
	assert.True(t, container.IsUsage(err))
	assert.ErrorIs(t, err, container.ErrControllerRemoved)

	assert.True(t, container.IsStructural(c.AddListener(nil)))
}

func TestListenerFunc(t *testing.T) {
	ct := newContainer(t)
	events := make(chan container.Event, 16)
	fn := container.ListenerFunc(func(e container.Event) { events <- e })

	b := ct.AddService(name("svc"), service.Null)
	require.NoError(t, b.AddListener(&fn, &fn))
	require.NoError(t, b.Install())
	settle(t, ct)

	close(events)
	var kinds []string
	for e := range events {
		kinds = append(kinds, e.Kind.String())
	}
	assert.Equal(t, []string{"listenerAdded", "serviceStarting", "serviceStarted"}, kinds)
}

// reentrantListener stops its controller as soon as it has started.
type reentrantListener struct {
	container.BaseListener
}

func (reentrantListener) ServiceStarted(c *container.Controller) {
	_ = c.SetMode(container.ModeNever)
}

func TestListenerMayMutateController(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	n := name("svc")

	b := ct.AddService(n, service.Null)
	require.NoError(t, b.AddListener(&reentrantListener{}, rec))
	require.NoError(t, b.Install())
	settle(t, ct)

	c, err := ct.Service(n)
	require.NoError(t, err)
	requireState(t, c, container.StateDown)
	assert.Equal(t, 1, rec.Count(n, container.EventServiceStopped))
}

type panickingListener struct {
	container.BaseListener
}

func (panickingListener) ServiceStarting(*container.Controller) { panic("listener bug") }

func TestListenerPanicIsRecovered(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	n := name("svc")

	b := ct.AddService(n, service.Null)
	require.NoError(t, b.AddListener(&panickingListener{}, rec))
	require.NoError(t, b.Install())
	settle(t, ct)

	c, err := ct.Service(n)
	require.NoError(t, err)
	requireState(t, c, container.StateUp)
	assert.Equal(t, 1, rec.Count(n, container.EventServiceStarted))
}

func TestControllerFromContext(t *testing.T) {
	ct := newContainer(t)
	found := make(chan *container.Controller, 1)
	svc := service.Funcs{StartFunc: func(ctx context.Context) error {
		c, _ := container.ControllerFromContext(ctx)
		found <- c
		return nil
	}}

	c := install(t, ct, name("svc"), svc, nil)
	settle(t, ct)
	assert.Same(t, c, <-found)

	_, ok := container.ControllerFromContext(context.Background())
	assert.False(t, ok)
}

func TestStartTaskDelaysModeChange(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	svc := newBlocking()
	n := name("slow")

	c := install(t, ct, n, svc, rec)
	<-svc.started
	requireState(t, c, container.StateStarting)

	// Removal is recorded while the start is in flight and honoured after.
	setMode(t, c, container.ModeRemove)
	assert.Equal(t, container.ModeRemove, c.Mode())
	close(svc.release)
	settle(t, ct)

	requireState(t, c, container.StateRemoved)
	requireEvents(t, rec, n,
		container.EventListenerAdded,
		container.EventServiceStarting,
		container.EventServiceStarted,
		container.EventServiceStopping,
		container.EventServiceStopped,
		container.EventServiceRemoved,
	)
}

func TestRetry(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	svc := newFlaky(true)
	n := name("flaky")

	c := install(t, ct, n, svc, rec)
	assert.False(t, install(t, ct, name("fine"), service.Null, nil).Retry())
	settle(t, ct)
	requireState(t, c, container.StateStartFailed)

	assert.True(t, c.Retry())
	settle(t, ct)
	requireState(t, c, container.StateStartFailed)
	assert.Equal(t, 2, rec.Count(n, container.EventServiceFailed))

	svc.setFailNext(false)
	assert.True(t, c.Retry())
	settle(t, ct)
	requireState(t, c, container.StateUp)
	assert.False(t, c.Retry())
	requireEvents(t, rec, n,
		container.EventListenerAdded,
		container.EventServiceStarting,
		container.EventServiceFailed,
		container.EventServiceStopped,
		container.EventServiceStarting,
		container.EventServiceFailed,
		container.EventServiceStopped,
		container.EventServiceStarting,
		container.EventServiceStarted,
	)
}
